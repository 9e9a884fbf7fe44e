// Package contractquery implements the single-method retry loop that
// re-issues a contract query when the returned payload is shorter than a
// declared expected size (spec.md §4.G).
package contractquery

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/retry"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/sdkerr"
)

// Request parameterizes a single raw contract query.
type Request struct {
	ContractIndex     uint32
	InputType         uint16
	InputBytes        []byte
	ExpectedOutputSize int // 0 means "no expectation"
	Retries           int // total attempts; 0 defaults to 1
	RetryDelay        retry.Backoff
	CancelToken       cancel.Token
}

// Result is returned by QueryRaw.
type Result struct {
	ResponseBytes  []byte
	ResponseBase64 string
	Attempts       int
}

// QueryRaw attempts a querySmartContract call, retrying when the response
// is shorter than ExpectedOutputSize and attempts remain.
func QueryRaw(ctx context.Context, client *rpcclient.Client, req Request) (*Result, error) {
	maxAttempts := req.Retries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastResp *rpcclient.QuerySmartContractResponse
	attempts := 0

	for attempts < maxAttempts {
		attempts++

		resp, err := client.QuerySmartContract(
			ctx,
			req.ContractIndex,
			req.InputType,
			base64.StdEncoding.EncodeToString(req.InputBytes),
			uint16(len(req.InputBytes)),
		)
		if err != nil {
			return nil, fmt.Errorf("contractquery: query smart contract: %w", err)
		}
		lastResp = resp

		decoded, err := base64.StdEncoding.DecodeString(resp.ResponseData)
		if err != nil {
			return nil, fmt.Errorf("contractquery: decode response: %w", err)
		}

		if req.ExpectedOutputSize == 0 || len(decoded) >= req.ExpectedOutputSize || attempts >= maxAttempts {
			return &Result{ResponseBytes: decoded, ResponseBase64: resp.ResponseData, Attempts: attempts}, nil
		}

		if err := cancel.Sleep(req.CancelToken, req.RetryDelay.Next()); err != nil {
			return nil, sdkerr.NewError(sdkerr.ErrKindContractQueryAborted, "contractquery: aborted during retry", err)
		}
	}

	decoded, _ := base64.StdEncoding.DecodeString(lastResp.ResponseData)
	return &Result{ResponseBytes: decoded, ResponseBase64: lastResp.ResponseData, Attempts: attempts}, nil
}
