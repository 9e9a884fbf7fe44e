package rpcclient

import (
	"context"
	"fmt"
)

// GetLastProcessedTick reports the tick the archive has fully processed
// (GET /query/v1/getLastProcessedTick). The confirmation engine polls this
// to decide when a target tick has passed.
func (c *Client) GetLastProcessedTick(ctx context.Context) (uint64, error) {
	var out LastProcessedTick
	if err := c.doJSON(ctx, "GET", c.queryURL("/getLastProcessedTick"), nil, &out); err != nil {
		return 0, err
	}
	return out.LastProcessedTick.Value(), nil
}

// GetTransactionByHash looks up a single confirmed transaction by its
// network transaction id. A 404 comes back wrapped as *RPCError with
// Status == 404; callers distinguish that from other failures with
// Is404, per spec.md §4.A.
func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*QueryTransaction, error) {
	req := GetTransactionByHashRequest{Hash: hash}
	var out QueryTransaction
	if err := c.doJSON(ctx, "POST", c.queryURL("/getTransactionByHash"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionsForIdentity lists the transactions an identity has sent
// or received, optionally narrowed by input-type filter, tick ranges, and
// pagination (spec.md §4.A).
func (c *Client) GetTransactionsForIdentity(ctx context.Context, req GetTransactionsForIdentityRequest) ([]QueryTransaction, error) {
	var out GetTransactionsForIdentityResponse
	if err := c.doJSON(ctx, "POST", c.queryURL("/getTransactionsForIdentity"), req, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: get transactions for identity: %w", err)
	}
	return out.Transactions, nil
}

// GetTransactionsForTick lists every transaction executed in a single
// tick.
func (c *Client) GetTransactionsForTick(ctx context.Context, tick uint64) ([]QueryTransaction, error) {
	req := struct {
		Tick uint64 `json:"tick"`
	}{Tick: tick}
	var out GetTransactionsForIdentityResponse
	if err := c.doJSON(ctx, "POST", c.queryURL("/getTransactionsForTick"), req, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: get transactions for tick: %w", err)
	}
	return out.Transactions, nil
}

// GetTickData fetches the full tick record (epoch, timestamp, included
// transaction hashes) for one tick number.
func (c *Client) GetTickData(ctx context.Context, tick uint64) (*TickData, error) {
	req := struct {
		Tick uint64 `json:"tick"`
	}{Tick: tick}
	var out TickData
	if err := c.doJSON(ctx, "POST", c.queryURL("/getTickData"), req, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: get tick data: %w", err)
	}
	return &out, nil
}

// GetProcessedTickIntervals lists the contiguous tick ranges the archive
// holds data for, per epoch.
func (c *Client) GetProcessedTickIntervals(ctx context.Context) ([]ProcessedTickInterval, error) {
	var out ProcessedTickIntervalsResponse
	if err := c.doJSON(ctx, "GET", c.queryURL("/getProcessedTickIntervals"), nil, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: get processed tick intervals: %w", err)
	}
	return out.Intervals, nil
}

// GetComputorListsForEpoch fetches the computor identity lists recorded
// for a given epoch.
func (c *Client) GetComputorListsForEpoch(ctx context.Context, epoch uint32) ([]ComputorList, error) {
	req := GetComputorListsForEpochRequest{Epoch: epoch}
	var out GetComputorListsForEpochResponse
	if err := c.doJSON(ctx, "POST", c.queryURL("/getComputorListsForEpoch"), req, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: get computor lists for epoch: %w", err)
	}
	return out.ComputorLists, nil
}
