package qubicsdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubickit/sdk-go/internal/qcrypto"
)

const testSeed = "jvhbfscfygscfygscfygscfygscfygscfygscfygscfygscfygbcfyg"

func destIdentity(t *testing.T) string {
	t.Helper()
	id, err := qcrypto.IdentityFromSeed("otherseedotherseedotherseedotherseedotherseedotherseedab", 0)
	require.NoError(t, err)
	return id
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestLoadConfigFromEnvRequiresRPCURL(t *testing.T) {
	t.Setenv("QUBIC_RPC_URL", "")
	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func TestSendAndConfirmEndToEndAgainstFakeNode(t *testing.T) {
	target := uint64(0)
	tick := uint64(100)

	mux := http.NewServeMux()
	mux.HandleFunc("/live/v1/tick-info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tick": tick})
	})
	mux.HandleFunc("/live/v1/broadcast-transaction", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			EncodedTransaction string `json:"encodedTransaction"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, err := base64.StdEncoding.DecodeString(body.EncodedTransaction)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"peersBroadcasted":   2,
			"encodedTransaction": body.EncodedTransaction,
			"transactionId":      "network-assigned-id",
		})
	})
	mux.HandleFunc("/query/v1/getLastProcessedTick", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": tick})
	})
	mux.HandleFunc("/query/v1/getTransactionByHash", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hash":       "network-assigned-id",
			"amount":     "1",
			"tickNumber": tick,
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := New(srv.URL)
	require.NoError(t, err)

	result, err := client.SendAndConfirmWithReceipt(context.Background(), BuildRequest{
		Source:     LiteralSeed(testSeed),
		ToIdentity: destIdentity(t),
		Amount:     1,
		TargetTick: &target,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, "network-assigned-id", result.Broadcast.TransactionId)
	require.NotNil(t, result.Record)
}

func TestSendQueuedItemReachesConfirmed(t *testing.T) {
	tick := uint64(100)
	mux := http.NewServeMux()
	mux.HandleFunc("/live/v1/tick-info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tick": tick})
	})
	mux.HandleFunc("/live/v1/broadcast-transaction", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"peersBroadcasted": 1, "transactionId": "tx-1"})
	})
	mux.HandleFunc("/query/v1/getLastProcessedTick", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": tick})
	})
	mux.HandleFunc("/query/v1/getTransactionByHash", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"hash": "tx-1", "amount": "1", "tickNumber": tick})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := New(srv.URL, WithQueuePolicy(QueuePolicyReject))
	require.NoError(t, err)

	target := uint64(0)
	source := destIdentity(t)
	item, err := client.SendQueued(context.Background(), source, BuildRequest{
		Source:     LiteralSeed(testSeed),
		ToIdentity: source,
		Amount:     1,
		TargetTick: &target,
	}, tick)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return item.Status() == QueueStatusConfirmed
	}, 2*time.Second, 5*time.Millisecond)
}
