// Package tickhelper computes a safe target tick for a new transaction,
// guarding against offsets that are too small to survive network latency
// or too large to be useful (spec.md §4.B).
package tickhelper

import (
	"context"
	"fmt"

	"github.com/qubickit/sdk-go/internal/rpcclient"
)

// Guardrails bounds the offset added to the current tick.
type Guardrails struct {
	MinOffset uint32
	MaxOffset uint32
}

// DefaultGuardrails matches the ledger's documented safe window.
var DefaultGuardrails = Guardrails{MinOffset: 3, MaxOffset: 100}

// GetSuggestedTargetTick fetches the node's current tick and adds offset,
// rejecting offsets outside guardrails before ever making the RPC call.
func GetSuggestedTargetTick(ctx context.Context, client *rpcclient.Client, offset uint32, g Guardrails) (uint64, error) {
	if offset < g.MinOffset {
		return 0, fmt.Errorf("tickhelper: offset %d below minimum %d", offset, g.MinOffset)
	}
	if offset > g.MaxOffset {
		return 0, fmt.Errorf("tickhelper: offset %d above maximum %d", offset, g.MaxOffset)
	}

	info, err := client.TickInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("tickhelper: fetch tick info: %w", err)
	}
	return info.Tick.Value() + uint64(offset), nil
}
