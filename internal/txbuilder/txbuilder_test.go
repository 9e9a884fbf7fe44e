package txbuilder

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

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/qcrypto"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/tickhelper"
)

const testSeed = "jvhbfscfygscfygscfygscfygscfygscfygscfygscfygscfygbcfyg"

func destIdentity(t *testing.T) string {
	t.Helper()
	id, err := qcrypto.IdentityFromSeed("otherseedotherseedotherseedotherseedotherseedotherseedab", 0)
	require.NoError(t, err)
	return id
}

func TestBuildSignedVerifiesAndMatchesExternalHash(t *testing.T) {
	target := uint64(12345)
	b := New(rpcclient.New("https://unused.example.com"), 10, tickhelper.DefaultGuardrails, nil)

	req := BuildRequest{
		Source:     LiteralSeed(testSeed),
		ToIdentity: destIdentity(t),
		Amount:     1,
		TargetTick: &target,
	}

	signed, err := b.BuildSigned(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, target, signed.TargetTick)

	ok, err := qcrypto.VerifyTransaction(signed.Bytes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, qcrypto.TransactionId(signed.Bytes), signed.TxId)
}

func TestSendUsesNetworkTransactionIdNotLocalTxId(t *testing.T) {
	target := uint64(100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body rpcclient.BroadcastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, err := base64.StdEncoding.DecodeString(body.EncodedTransaction)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(rpcclient.BroadcastResponse{
			PeersBroadcasted: 3,
			TransactionId:    "network-assigned-id",
		})
	}))
	defer srv.Close()

	b := New(rpcclient.New(srv.URL), 10, tickhelper.DefaultGuardrails, nil)
	result, err := b.Send(context.Background(), BuildRequest{
		Source:     LiteralSeed(testSeed),
		ToIdentity: destIdentity(t),
		Amount:     1,
		TargetTick: &target,
	})
	require.NoError(t, err)
	assert.NotEqual(t, result.Signed.TxId, result.Broadcast.TransactionId)
	assert.Equal(t, "network-assigned-id", result.Broadcast.TransactionId)
}

func TestBuildSignedAsksTickHelperWhenTargetTickOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tick": 1000})
	}))
	defer srv.Close()

	b := New(rpcclient.New(srv.URL), 10, tickhelper.DefaultGuardrails, nil)
	signed, err := b.BuildSigned(context.Background(), BuildRequest{
		Source:     LiteralSeed(testSeed),
		ToIdentity: destIdentity(t),
		Amount:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1010), signed.TargetTick)
}

func TestSendAndConfirmPropagatesConfirmationOutcome(t *testing.T) {
	target := uint64(10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/v1/broadcast-transaction":
			_ = json.NewEncoder(w).Encode(rpcclient.BroadcastResponse{TransactionId: "netid"})
		case "/query/v1/getLastProcessedTick":
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 10})
		case "/query/v1/getTransactionByHash":
			_ = json.NewEncoder(w).Encode(rpcclient.QueryTransaction{Hash: "netid", TickNumber: 10})
		}
	}))
	defer srv.Close()

	b := New(rpcclient.New(srv.URL), 10, tickhelper.DefaultGuardrails, nil)
	result, err := b.SendAndConfirm(context.Background(), BuildRequest{
		Source:     LiteralSeed(testSeed),
		ToIdentity: destIdentity(t),
		Amount:     1,
		TargetTick: &target,
	}, time.Second, time.Millisecond, cancel.Token{})
	require.NoError(t, err)
	assert.NotNil(t, result.Record)
}
