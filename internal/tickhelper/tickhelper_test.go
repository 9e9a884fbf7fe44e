package tickhelper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSuggestedTargetTickAddsOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tick": 1000})
	}))
	defer srv.Close()

	client := rpcclient.New(srv.URL)
	tick, err := GetSuggestedTargetTick(context.Background(), client, 10, DefaultGuardrails)
	require.NoError(t, err)
	assert.Equal(t, uint64(1010), tick)
}

func TestGetSuggestedTargetTickRejectsOffsetOutOfRange(t *testing.T) {
	client := rpcclient.New("https://unused.example.com")

	_, err := GetSuggestedTargetTick(context.Background(), client, 1, DefaultGuardrails)
	assert.Error(t, err)

	_, err = GetSuggestedTargetTick(context.Background(), client, 1000, DefaultGuardrails)
	assert.Error(t, err)
}
