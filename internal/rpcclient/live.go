package rpcclient

import (
	"context"
	"fmt"
)

// TickInfo fetches the current tick/epoch state from the live surface
// (GET /live/v1/tick-info).
func (c *Client) TickInfo(ctx context.Context) (*TickInfo, error) {
	var out TickInfo
	if err := c.doJSON(ctx, "GET", c.liveURL("/tick-info"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance fetches the current balance of an identity
// (GET /live/v1/balances/{id}).
func (c *Client) Balance(ctx context.Context, identity string) (*Balance, error) {
	var out Balance
	url := c.liveURL("/balances/" + identity)
	if err := c.doJSON(ctx, "GET", url, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BroadcastTransaction submits an already-signed, wire-encoded transaction
// to the network (POST /live/v1/broadcast-transaction). encodedTransaction
// is the base64 form of the signed transaction bytes.
func (c *Client) BroadcastTransaction(ctx context.Context, encodedTransaction string) (*BroadcastResponse, error) {
	req := BroadcastRequest{EncodedTransaction: encodedTransaction}
	var out BroadcastResponse
	if err := c.doJSON(ctx, "POST", c.liveURL("/broadcast-transaction"), req, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: broadcast transaction: %w", err)
	}
	return &out, nil
}

// QuerySmartContract invokes a read-only contract function
// (POST /live/v1/querySmartContract). requestData is the base64-encoded,
// already-packed contract input.
func (c *Client) QuerySmartContract(ctx context.Context, contractIndex uint32, inputType uint16, requestData string, inputSize uint16) (*QuerySmartContractResponse, error) {
	req := QuerySmartContractRequest{
		ContractIndex: contractIndex,
		InputType:     inputType,
		InputSize:     inputSize,
		RequestData:   requestData,
	}
	var out QuerySmartContractResponse
	if err := c.doJSON(ctx, "POST", c.liveURL("/querySmartContract"), req, &out); err != nil {
		return nil, fmt.Errorf("rpcclient: query smart contract: %w", err)
	}
	return &out, nil
}
