package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesBaseURLRegardlessOfSuffix(t *testing.T) {
	plain := New("https://rpc.example.com")
	withLive := New("https://rpc.example.com/live/v1/")
	assert.Equal(t, plain.liveBaseURL, withLive.liveBaseURL)
	assert.Equal(t, "https://rpc.example.com/live/v1", plain.liveBaseURL)
	assert.Equal(t, "https://rpc.example.com/query/v1", plain.queryBaseURL)
}

func TestTickInfoDecodesWideIntegers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/live/v1/tick-info", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tick":                 "18446744073709551615",
			"epoch":                120,
			"initialTick":          1000,
			"initialTickTimestamp": 1700000000,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	info, err := c.TickInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), info.Tick.Value())
	assert.Equal(t, uint64(120), info.Epoch.Value())
}

func TestNon2xxReturnsStructuredRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetTransactionByHash(context.Background(), "deadbeef")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 404, rpcErr.Status)
	assert.Equal(t, "not found", rpcErr.BodyText)
}

func TestInvalidJSONBodyIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.TickInfo(context.Background())
	require.Error(t, err)

	var jsonErr *InvalidJSONError
	require.ErrorAs(t, err, &jsonErr)
}

func TestHooksObserveRequestLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(LastProcessedTick{})
	}))
	defer srv.Close()

	var gotRequest, gotResponse bool
	c := New(srv.URL, WithHooks(Hooks{
		OnRequest:  func(method, url string) { gotRequest = true },
		OnResponse: func(method, url string, status int, dur time.Duration) { gotResponse = true },
	}))
	_, err := c.GetLastProcessedTick(context.Background())
	require.NoError(t, err)
	assert.True(t, gotRequest)
	assert.True(t, gotResponse)
}
