package confirm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/rpcclient"
)

func TestWaitConfirmsFastPath(t *testing.T) {
	var tickCalls atomic.Int32
	var hashCalls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/query/v1/getLastProcessedTick":
			n := tickCalls.Add(1)
			tick := 5
			if n > 1 {
				tick = 10
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": tick})
		case "/query/v1/getTransactionByHash":
			n := hashCalls.Add(1)
			if n == 1 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(rpcclient.QueryTransaction{Hash: "tx", TickNumber: 10})
		}
	}))
	defer srv.Close()

	client := rpcclient.New(srv.URL)
	engine := New(client, nil)

	record, outcome, err := engine.Wait(context.Background(), Params{
		TxId:         "tx",
		TargetTick:   10,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)
	assert.Equal(t, "tx", record.Hash)
}

func TestWaitReturnsNotFoundAfterTargetReachedAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/query/v1/getLastProcessedTick":
			_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 10})
		case "/query/v1/getTransactionByHash":
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	mockClock := clock.NewMock()
	client := rpcclient.New(srv.URL)
	engine := New(client, nil)

	done := make(chan struct{})
	var outcome Outcome
	var err error
	go func() {
		_, outcome, err = engine.Wait(context.Background(), Params{
			TxId:         "tx",
			TargetTick:   10,
			PollInterval: time.Millisecond,
			Timeout:      20 * time.Millisecond,
			Clock:        mockClock,
		})
		close(done)
	}()

	// Advance the fake clock in small steps until Wait returns, so every
	// poll-interval timer the engine creates is eventually fired.
	for waiting := true; waiting; {
		select {
		case <-done:
			waiting = false
		default:
			mockClock.Add(time.Millisecond)
		}
	}
	require.Error(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaitTimesOutWhenTargetNeverReached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 0})
	}))
	defer srv.Close()

	mockClock := clock.NewMock()
	client := rpcclient.New(srv.URL)
	engine := New(client, nil)

	done := make(chan struct{})
	var outcome Outcome
	var err error
	go func() {
		_, outcome, err = engine.Wait(context.Background(), Params{
			TxId:         "tx",
			TargetTick:   10,
			PollInterval: time.Millisecond,
			Timeout:      20 * time.Millisecond,
			Clock:        mockClock,
		})
		close(done)
	}()

	for waiting := true; waiting; {
		select {
		case <-done:
			waiting = false
		default:
			mockClock.Add(time.Millisecond)
		}
	}
	require.Error(t, err)
	assert.Equal(t, OutcomeTimeout, outcome)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWaitAbortsOnCancelToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"lastProcessedTick": 0})
	}))
	defer srv.Close()

	client := rpcclient.New(srv.URL)
	engine := New(client, nil)

	token := cancel.New()
	token.Fire()

	_, outcome, err := engine.Wait(context.Background(), Params{
		TxId:         "tx",
		TargetTick:   10,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
		CancelToken:  token,
	})
	require.Error(t, err)
	assert.Equal(t, OutcomeAborted, outcome)
	assert.ErrorIs(t, err, ErrAborted)
}
