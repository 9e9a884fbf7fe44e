package txqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/qcrypto"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/tickhelper"
	"github.com/qubickit/sdk-go/internal/txbuilder"
)

const testSeed = "jvhbfscfygscfygscfygscfygscfygscfygscfygscfygscfygbcfyg"

func destIdentity(t *testing.T) string {
	t.Helper()
	id, err := qcrypto.IdentityFromSeed("otherseedotherseedotherseedotherseedotherseedotherseedab", 0)
	require.NoError(t, err)
	return id
}

func newTestBuilder(t *testing.T, handler http.HandlerFunc) *txbuilder.Builder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return txbuilder.New(rpcclient.New(srv.URL), 10, tickhelper.DefaultGuardrails, nil)
}

func TestEnqueueSerializesSameSourceUnderWaitForConfirm(t *testing.T) {
	var broadcastOrder []uint64
	var mu atomic.Int32

	builder := newTestBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/v1/broadcast-transaction":
			var body rpcclient.BroadcastRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			n := mu.Add(1)
			broadcastOrder = append(broadcastOrder, uint64(n))
			_ = json.NewEncoder(w).Encode(rpcclient.BroadcastResponse{TransactionId: "tx" + time.Now().String()})
		case "/query/v1/getLastProcessedTick":
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 999})
		case "/query/v1/getTransactionByHash":
			_ = json.NewEncoder(w).Encode(rpcclient.QueryTransaction{Hash: "tx", TickNumber: 999})
		}
	})

	q := New(builder, PolicyWaitForConfirm, nil)
	dest := destIdentity(t)

	t1 := uint64(10)
	t2 := uint64(11)

	item1, err1 := q.Enqueue(context.Background(), "sourceA", txbuilder.BuildRequest{
		Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &t1,
	}, t1, time.Second, time.Millisecond, cancel.Token{})
	require.NoError(t, err1)
	assert.Equal(t, StatusConfirmed, item1.Status())

	item2, err2 := q.Enqueue(context.Background(), "sourceA", txbuilder.BuildRequest{
		Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &t2,
	}, t2, time.Second, time.Millisecond, cancel.Token{})
	require.NoError(t, err2)
	assert.Equal(t, StatusConfirmed, item2.Status())

	assert.NotEqual(t, item1.TxId(), item2.TxId())
}

func TestEnqueueRejectsConflictUnderRejectPolicy(t *testing.T) {
	release := make(chan struct{})
	builder := newTestBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/v1/broadcast-transaction":
			_ = json.NewEncoder(w).Encode(rpcclient.BroadcastResponse{TransactionId: "tx1"})
		case "/query/v1/getLastProcessedTick":
			<-release
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 999})
		case "/query/v1/getTransactionByHash":
			_ = json.NewEncoder(w).Encode(rpcclient.QueryTransaction{Hash: "tx1", TickNumber: 999})
		}
	})

	q := New(builder, PolicyReject, nil)
	dest := destIdentity(t)
	tick := uint64(10)

	go func() {
		_, _ = q.Enqueue(context.Background(), "sourceB", txbuilder.BuildRequest{
			Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &tick,
		}, tick, time.Second, time.Millisecond, cancel.Token{})
	}()

	// Wait for the first item to reach the active slot.
	require.Eventually(t, func() bool {
		return q.Active("sourceB") != nil
	}, time.Second, time.Millisecond)

	tick2 := uint64(11)
	item2, err := q.Enqueue(context.Background(), "sourceB", txbuilder.BuildRequest{
		Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &tick2,
	}, tick2, time.Second, time.Millisecond, cancel.Token{})
	require.ErrorIs(t, err, ErrQueuePolicyRejected)
	assert.Equal(t, StatusFailed, item2.Status())

	close(release)
}

func TestReplaceHigherTickSupersedesLowerActiveItem(t *testing.T) {
	release := make(chan struct{})
	var broadcasts atomic.Int32
	// Only the first item's lookup blocks, so the superseding item can
	// confirm while the first one is still waiting.
	builder := newTestBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/v1/broadcast-transaction":
			id := "tx1"
			if broadcasts.Add(1) > 1 {
				id = "tx2"
			}
			_ = json.NewEncoder(w).Encode(rpcclient.BroadcastResponse{TransactionId: id})
		case "/query/v1/getLastProcessedTick":
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 999})
		case "/query/v1/getTransactionByHash":
			var body rpcclient.GetTransactionByHashRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.Hash == "tx1" {
				<-release
			}
			_ = json.NewEncoder(w).Encode(rpcclient.QueryTransaction{Hash: body.Hash, TickNumber: 999})
		}
	})

	q := New(builder, PolicyReplaceHigherTick, nil)
	dest := destIdentity(t)
	tick1 := uint64(10)

	var item1 *Item
	done1 := make(chan struct{})
	go func() {
		item1, _ = q.Enqueue(context.Background(), "sourceC", txbuilder.BuildRequest{
			Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &tick1,
		}, tick1, time.Second, time.Millisecond, cancel.Token{})
		close(done1)
	}()

	require.Eventually(t, func() bool {
		active := q.Active("sourceC")
		return active != nil && active.Status() == StatusConfirming
	}, time.Second, time.Millisecond)

	tick2 := uint64(20)
	item2, err := q.Enqueue(context.Background(), "sourceC", txbuilder.BuildRequest{
		Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &tick2,
	}, tick2, time.Second, time.Millisecond, cancel.Token{})

	close(release)
	<-done1

	require.NotNil(t, item1)
	assert.Equal(t, StatusSuperseded, item1.Status())
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, item2.Status())
}

func TestReplaceHigherTickRejectsLowerOrEqualTick(t *testing.T) {
	release := make(chan struct{})
	builder := newTestBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/v1/broadcast-transaction":
			_ = json.NewEncoder(w).Encode(rpcclient.BroadcastResponse{TransactionId: "tx1"})
		case "/query/v1/getLastProcessedTick":
			<-release
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 999})
		case "/query/v1/getTransactionByHash":
			_ = json.NewEncoder(w).Encode(rpcclient.QueryTransaction{Hash: "tx1", TickNumber: 999})
		}
	})

	q := New(builder, PolicyReplaceHigherTick, nil)
	dest := destIdentity(t)
	tick1 := uint64(10)

	go func() {
		_, _ = q.Enqueue(context.Background(), "sourceD", txbuilder.BuildRequest{
			Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &tick1,
		}, tick1, time.Second, time.Millisecond, cancel.Token{})
	}()

	require.Eventually(t, func() bool {
		return q.Active("sourceD") != nil
	}, time.Second, time.Millisecond)

	tick2 := uint64(5)
	item2, err := q.Enqueue(context.Background(), "sourceD", txbuilder.BuildRequest{
		Source: txbuilder.LiteralSeed(testSeed), ToIdentity: dest, Amount: 1, TargetTick: &tick2,
	}, tick2, time.Second, time.Millisecond, cancel.Token{})
	require.ErrorIs(t, err, ErrQueuePolicyRejected)
	assert.Equal(t, StatusFailed, item2.Status())

	close(release)
}
