// Package txbuilder composes signing material, destination, amount, tick,
// and optional contract payload into signed transaction bytes and a
// deterministic transaction id (spec.md §4.D), and wires the send /
// sendAndConfirm / sendAndConfirmWithReceipt façade on top.
package txbuilder

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/confirm"
	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/qcrypto"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/sdkerr"
	"github.com/qubickit/sdk-go/internal/tickhelper"
)

// SeedSource resolves to a plain seed string. A literal seed and a vault
// reference both satisfy this narrow interface so the builder never
// depends on the vault package directly (spec.md §9 avoids a back-pointer
// from the builder to the vault).
type SeedSource interface {
	ResolveSeed(ctx context.Context) (string, error)
}

// LiteralSeed is a SeedSource over an already-known seed string.
type LiteralSeed string

func (s LiteralSeed) ResolveSeed(context.Context) (string, error) { return string(s), nil }

// SignedTransaction is the immutable record from spec.md §3.
type SignedTransaction struct {
	Bytes      []byte
	TxId       string
	TargetTick uint64
}

// BuildRequest is the input to BuildSigned.
type BuildRequest struct {
	Source     SeedSource
	ToIdentity string
	Amount     uint64
	TargetTick *uint64 // nil asks the tick helper
	InputType  uint16
	InputBytes []byte
}

// Builder composes signing, tick resolution, and broadcast over a single
// RPC client.
type Builder struct {
	client     *rpcclient.Client
	guardrails tickhelper.Guardrails
	offset     uint32
	confirmer  *confirm.Engine
	log        *obslog.Logger
}

// New constructs a Builder.
func New(client *rpcclient.Client, defaultOffset uint32, guardrails tickhelper.Guardrails, log *obslog.Logger) *Builder {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Builder{
		client:     client,
		guardrails: guardrails,
		offset:     defaultOffset,
		confirmer:  confirm.New(client, log),
		log:        log,
	}
}

// BuildSigned implements spec.md §4.D's buildSigned.
func (b *Builder) BuildSigned(ctx context.Context, req BuildRequest) (*SignedTransaction, error) {
	seed, err := req.Source.ResolveSeed(ctx)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: resolve seed: %w", err)
	}

	targetTick := uint64(0)
	if req.TargetTick != nil {
		targetTick = *req.TargetTick
	} else {
		targetTick, err = tickhelper.GetSuggestedTargetTick(ctx, b.client, b.offset, b.guardrails)
		if err != nil {
			return nil, fmt.Errorf("txbuilder: resolve target tick: %w", err)
		}
	}
	if targetTick > uint64(math.MaxUint32) {
		return nil, sdkerr.NewError(sdkerr.ErrKindOutOfRange, fmt.Sprintf("txbuilder: target tick %d out of u32 range", targetTick), nil)
	}

	priv := qcrypto.PrivateKeyFromSeed(seed)
	srcPK, err := qcrypto.PublicKeyFromPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: derive public key: %w", err)
	}
	dstPK, err := qcrypto.PublicKeyFromIdentity(req.ToIdentity)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: decode destination identity: %w", err)
	}

	signed, err := qcrypto.BuildSignedTransaction(qcrypto.TransactionRequest{
		SourcePublicKey:      srcPK,
		DestinationPublicKey: dstPK,
		Amount:               req.Amount,
		Tick:                 uint32(targetTick),
		InputType:            req.InputType,
		InputBytes:           req.InputBytes,
	}, priv)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: sign transaction: %w", err)
	}

	return &SignedTransaction{
		Bytes:      signed,
		TxId:       qcrypto.TransactionId(signed),
		TargetTick: targetTick,
	}, nil
}

// SendResult is returned by Send: the signed transaction plus the
// broadcast acknowledgement.
type SendResult struct {
	Signed    *SignedTransaction
	Broadcast *rpcclient.BroadcastResponse
}

// Send builds and broadcasts, without waiting for confirmation.
func (b *Builder) Send(ctx context.Context, req BuildRequest) (*SendResult, error) {
	signed, err := b.BuildSigned(ctx, req)
	if err != nil {
		return nil, err
	}
	broadcast, err := b.client.BroadcastTransaction(ctx, base64.StdEncoding.EncodeToString(signed.Bytes))
	if err != nil {
		return nil, fmt.Errorf("txbuilder: broadcast: %w", err)
	}
	return &SendResult{Signed: signed, Broadcast: broadcast}, nil
}

// ConfirmResult is returned by SendAndConfirm.
type ConfirmResult struct {
	Signed    *SignedTransaction
	Broadcast *rpcclient.BroadcastResponse
	Outcome   confirm.Outcome
	Record    *rpcclient.QueryTransaction
}

// SendAndConfirm builds, broadcasts, then waits for tick-bounded
// confirmation, using the broadcast's authoritative networkTxId per
// spec.md §9 ("do not assume equality" between txId and networkTxId).
func (b *Builder) SendAndConfirm(ctx context.Context, req BuildRequest, timeout, pollInterval time.Duration, token cancel.Token) (*ConfirmResult, error) {
	sent, err := b.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	record, outcome, err := b.WaitOnly(ctx, sent, timeout, pollInterval, token)
	result := &ConfirmResult{Signed: sent.Signed, Broadcast: sent.Broadcast, Outcome: outcome, Record: record}
	if err != nil {
		return result, err
	}
	return result, nil
}

// WaitOnly waits for confirmation of an already-sent transaction. Exposed
// separately so txqueue can interleave its own pending/confirming status
// transitions around a single confirmation wait.
func (b *Builder) WaitOnly(ctx context.Context, sent *SendResult, timeout, pollInterval time.Duration, token cancel.Token) (*rpcclient.QueryTransaction, confirm.Outcome, error) {
	return b.confirmer.Wait(ctx, confirm.Params{
		TxId:         sent.Broadcast.TransactionId,
		TargetTick:   sent.Signed.TargetTick,
		Timeout:      timeout,
		PollInterval: pollInterval,
		CancelToken:  token,
	})
}
