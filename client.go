// Package qubicsdk is the public entry point: it wires the RPC transport,
// tick helper, confirmation engine, transaction builder, per-source
// transaction queue, contract interface registry, and log-stream engine
// from internal/ into one composition root, following the teacher's
// top-level adapter.go composition pattern (a single struct holding every
// collaborator, constructed once via a functional-option New).
package qubicsdk

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/confirm"
	"github.com/qubickit/sdk-go/internal/contractquery"
	"github.com/qubickit/sdk-go/internal/logstream"
	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/qcrypto"
	"github.com/qubickit/sdk-go/internal/registry"
	"github.com/qubickit/sdk-go/internal/retry"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/sendmany"
	"github.com/qubickit/sdk-go/internal/tickhelper"
	"github.com/qubickit/sdk-go/internal/txbuilder"
	"github.com/qubickit/sdk-go/internal/txqueue"
)

// re-exported so callers never need to import internal/ themselves.
type (
	SeedSource        = txbuilder.SeedSource
	LiteralSeed       = txbuilder.LiteralSeed
	SignedTransaction = txbuilder.SignedTransaction
	BuildRequest      = txbuilder.BuildRequest
	SendResult        = txbuilder.SendResult
	ConfirmResult     = txbuilder.ConfirmResult
	ConfirmOutcome    = confirm.Outcome

	QueuedItem   = txqueue.Item
	QueuePolicy  = txqueue.Policy
	QueueStatus  = txqueue.Status

	InterfaceFile       = registry.File
	InterfaceEntry      = registry.Entry
	ContractRef         = registry.ContractRef
	EntryKind           = registry.EntryKind
	ContractCodec       = registry.Codec
	CodecKey            = registry.CodecKey
	ContractQueryInput  = registry.QueryInput
	ContractQueryResult = registry.QueryResult
	ProcedureInput      = registry.ProcedureInput

	LogSubscription = logstream.Subscription
	LogCursor       = logstream.Cursor
	CursorStore     = logstream.CursorStore
	LogHandlers     = logstream.Handlers
	LogInbound      = logstream.InboundMessage

	SendManyTransfer = sendmany.Transfer

	Backoff = retry.Backoff
	Token   = cancel.Token

	TickGuardrails = tickhelper.Guardrails
)

const (
	KindFunction  = registry.KindFunction
	KindProcedure = registry.KindProcedure

	QueuePolicyWaitForConfirm    = txqueue.PolicyWaitForConfirm
	QueuePolicyReject            = txqueue.PolicyReject
	QueuePolicyReplaceHigherTick = txqueue.PolicyReplaceHigherTick

	OutcomeConfirmed = confirm.OutcomeConfirmed
	OutcomeNotFound  = confirm.OutcomeNotFound
	OutcomeTimeout   = confirm.OutcomeTimeout
	OutcomeAborted   = confirm.OutcomeAborted

	QueueStatusPending    = txqueue.StatusPending
	QueueStatusSubmitted  = txqueue.StatusSubmitted
	QueueStatusConfirming = txqueue.StatusConfirming
	QueueStatusConfirmed  = txqueue.StatusConfirmed
	QueueStatusFailed     = txqueue.StatusFailed
	QueueStatusSuperseded = txqueue.StatusSuperseded
)

// NewCancelToken constructs an independent cancel.Token for callers that
// want to abort an in-flight confirmation wait or contract query.
func NewCancelToken() Token { return cancel.New() }

// Client is the SDK's composition root: one RPC connection to a ledger
// node plus every stateless or per-process collaborator built on top of
// it.
type Client struct {
	cfg ClientConfig

	rpc       *rpcclient.Client
	confirmer *confirm.Engine
	builder   *txbuilder.Builder
	queue     *txqueue.Queue

	log *obslog.Logger
}

// New constructs a Client for a single ledger node.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := defaultConfig(baseURL)
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg)
}

// NewFromConfig constructs a Client from an already-assembled
// ClientConfig, e.g. one returned by LoadConfigFromEnv.
func NewFromConfig(cfg ClientConfig) (*Client, error) {
	return newFromConfig(cfg)
}

func newFromConfig(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("qubicsdk: BaseURL is required")
	}
	log := cfg.Logger
	if log == nil {
		log = obslog.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RPCTimeout}
	}

	rpc := rpcclient.New(cfg.BaseURL,
		rpcclient.WithHTTPClient(httpClient),
		rpcclient.WithHooks(cfg.Hooks),
		rpcclient.WithLogger(log),
	)

	builder := txbuilder.New(rpc, cfg.DefaultTickOffset, cfg.TickGuardrails, log)
	queue := txqueue.New(builder, cfg.QueuePolicy, log)

	return &Client{
		cfg:       cfg,
		rpc:       rpc,
		confirmer: confirm.New(rpc, log),
		builder:   builder,
		queue:     queue,
		log:       log,
	}, nil
}

// TickInfo returns the node's current tick info (spec.md §4.A).
func (c *Client) TickInfo(ctx context.Context) (*rpcclient.TickInfo, error) {
	return c.rpc.TickInfo(ctx)
}

// Balance returns an identity's current balance.
func (c *Client) Balance(ctx context.Context, identity string) (*rpcclient.Balance, error) {
	return c.rpc.Balance(ctx, identity)
}

// GetSuggestedTargetTick implements spec.md §4.B using the client's
// configured default offset and guardrails.
func (c *Client) GetSuggestedTargetTick(ctx context.Context) (uint64, error) {
	return tickhelper.GetSuggestedTargetTick(ctx, c.rpc, c.cfg.DefaultTickOffset, c.cfg.TickGuardrails)
}

// GetSuggestedTargetTickWithOffset lets a caller override the offset for
// a single call while still honoring the client's guardrails.
func (c *Client) GetSuggestedTargetTickWithOffset(ctx context.Context, offset uint32) (uint64, error) {
	return tickhelper.GetSuggestedTargetTick(ctx, c.rpc, offset, c.cfg.TickGuardrails)
}

// GetTransactionByHash implements spec.md §4.A; a not-found record
// surfaces as an *RPCError with Status 404 — test with Is404.
func (c *Client) GetTransactionByHash(ctx context.Context, hash string) (*rpcclient.QueryTransaction, error) {
	return c.rpc.GetTransactionByHash(ctx, hash)
}

// GetTransactionsForIdentity paginates an identity's transaction history.
func (c *Client) GetTransactionsForIdentity(ctx context.Context, req rpcclient.GetTransactionsForIdentityRequest) ([]rpcclient.QueryTransaction, error) {
	return c.rpc.GetTransactionsForIdentity(ctx, req)
}

// BuildSigned implements spec.md §4.D's buildSigned in isolation (sign
// without broadcasting).
func (c *Client) BuildSigned(ctx context.Context, req BuildRequest) (*SignedTransaction, error) {
	return c.builder.BuildSigned(ctx, req)
}

// Send builds and broadcasts, without waiting for confirmation.
func (c *Client) Send(ctx context.Context, req BuildRequest) (*SendResult, error) {
	return c.builder.Send(ctx, req)
}

// resolveSourceIdentity derives req.Source's source identity the same way
// txbuilder.BuildSigned derives the source public key, so the queue's
// per-source slot always keys on the same identity a direct build would
// have signed from.
func (c *Client) resolveSourceIdentity(ctx context.Context, source SeedSource) (string, error) {
	seed, err := source.ResolveSeed(ctx)
	if err != nil {
		return "", fmt.Errorf("qubicsdk: resolve source seed: %w", err)
	}
	priv := qcrypto.PrivateKeyFromSeed(seed)
	pub, err := qcrypto.PublicKeyFromPrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("qubicsdk: derive source public key: %w", err)
	}
	return qcrypto.IdentityFromPublicKey(pub), nil
}

// resolveTargetTick returns req's explicit target tick, or asks the tick
// helper for one when absent, mirroring txbuilder.BuildSigned's own
// resolution so the queue sees the same target tick a direct build would.
func (c *Client) resolveTargetTick(ctx context.Context, req BuildRequest) (uint64, error) {
	if req.TargetTick != nil {
		return *req.TargetTick, nil
	}
	return tickhelper.GetSuggestedTargetTick(ctx, c.rpc, c.cfg.DefaultTickOffset, c.cfg.TickGuardrails)
}

// sendAndConfirmQueued is the shared implementation behind every
// SendAndConfirm* variant: it always enqueues (spec.md §4.D, "when a
// queue is configured, sendAndConfirm MUST delegate to sendQueued" — a
// queue is always configured, per options.go's default PolicyWaitForConfirm),
// so every caller gets the queue's per-source serialization guarantee.
func (c *Client) sendAndConfirmQueued(ctx context.Context, req BuildRequest, timeout, pollInterval time.Duration, token Token) (*ConfirmResult, error) {
	sourceIdentity, err := c.resolveSourceIdentity(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	targetTick, err := c.resolveTargetTick(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qubicsdk: resolve target tick: %w", err)
	}

	item, err := c.queue.Enqueue(ctx, sourceIdentity, req, targetTick, timeout, pollInterval, token)
	if err != nil {
		return nil, err
	}
	if result := item.Result(); result != nil {
		return result, nil
	}
	return nil, item.Err()
}

// SendAndConfirm builds, broadcasts, and waits for tick-bounded
// confirmation, delegating to the queue so the per-source serialization
// guarantee holds for every caller (spec.md §4.D).
func (c *Client) SendAndConfirm(ctx context.Context, req BuildRequest) (*ConfirmResult, error) {
	return c.SendAndConfirmWithReceipt(ctx, req)
}

// SendAndConfirmWithReceipt is SendAndConfirm's full-detail form: the
// same ConfirmResult, explicitly named so callers reaching for the
// ledger record don't have to remember it rides along on the plain
// variant.
func (c *Client) SendAndConfirmWithReceipt(ctx context.Context, req BuildRequest) (*ConfirmResult, error) {
	return c.sendAndConfirmQueued(ctx, req, c.cfg.DefaultConfirmTimeout, c.cfg.DefaultConfirmPollInterval, cancel.Token{})
}

// SendAndConfirmWithOptions exposes the timeout/poll-interval/cancel
// token explicitly, for callers that don't want the client-wide
// defaults. The cancel token is merged into the queue item's own token,
// so firing it aborts the wait the same way a supersession would.
func (c *Client) SendAndConfirmWithOptions(ctx context.Context, req BuildRequest, timeout, pollInterval time.Duration, token Token) (*ConfirmResult, error) {
	return c.sendAndConfirmQueued(ctx, req, timeout, pollInterval, token)
}

// SendQueued enqueues req under the source identity's active queue slot,
// serializing against any other in-flight transaction for the same
// identity per the client's configured QueuePolicy (spec.md §4.E).
func (c *Client) SendQueued(ctx context.Context, sourceIdentity string, req BuildRequest, targetTick uint64) (*QueuedItem, error) {
	return c.queue.Enqueue(ctx, sourceIdentity, req, targetTick, c.cfg.DefaultConfirmTimeout, c.cfg.DefaultConfirmPollInterval, cancel.Token{})
}

// QueueHistory returns every queue item ever enqueued for sourceIdentity,
// most recent last.
func (c *Client) QueueHistory(sourceIdentity string) []*QueuedItem {
	return c.queue.History(sourceIdentity)
}

// QueueActive returns the currently in-flight queue item for
// sourceIdentity, or nil if none.
func (c *Client) QueueActive(sourceIdentity string) *QueuedItem {
	return c.queue.Active(sourceIdentity)
}

// WaitForConfirmation exposes the confirmation engine directly, for
// callers tracking a transaction they built or broadcast elsewhere.
func (c *Client) WaitForConfirmation(ctx context.Context, txId string, targetTick uint64, timeout, pollInterval time.Duration, token Token) (*rpcclient.QueryTransaction, ConfirmOutcome, error) {
	return c.confirmer.Wait(ctx, confirm.Params{
		TxId:         txId,
		TargetTick:   targetTick,
		Timeout:      timeout,
		PollInterval: pollInterval,
		CancelToken:  token,
	})
}

// QueryContractRaw performs a one-off smart-contract query without going
// through an InterfaceRegistry handle (spec.md §4.F/§4.G).
func (c *Client) QueryContractRaw(ctx context.Context, req contractquery.Request) (*contractquery.Result, error) {
	return contractquery.QueryRaw(ctx, c.rpc, req)
}

// NewRegistry builds an InterfaceRegistry bound to this client's RPC
// connection and transaction builder (spec.md §4.H).
func (c *Client) NewRegistry(files []InterfaceFile, codecs map[CodecKey]ContractCodec) (*ContractRegistry, error) {
	reg, err := registry.New(files, codecs)
	if err != nil {
		return nil, err
	}
	return &ContractRegistry{reg: reg, client: c}, nil
}

// ContractRegistry is the client-bound wrapper around internal/registry
// so callers resolve contract handles without importing internal/.
type ContractRegistry struct {
	reg    *registry.Registry
	client *Client
}

// Contract resolves a per-contract handle by interface-file name.
func (r *ContractRegistry) Contract(name string) (*ContractHandle, error) {
	h, err := r.reg.Contract(r.client.rpc, r.client.builder, name)
	if err != nil {
		return nil, err
	}
	return &ContractHandle{h: h}, nil
}

// ContractHandle is a bound, per-contract view used to drive queries and
// procedure transactions.
type ContractHandle struct {
	h *registry.Handle
}

// Query performs a read-only contract query (spec.md §4.H).
func (h *ContractHandle) Query(ctx context.Context, name string, input ContractQueryInput) (*ContractQueryResult, error) {
	return h.h.Query(ctx, name, input)
}

// QueryValue performs Query and returns only the codec-decoded value.
func (h *ContractHandle) QueryValue(ctx context.Context, name string, input ContractQueryInput) (any, error) {
	return h.h.QueryValue(ctx, name, input)
}

// BuildProcedureTransaction builds (without broadcasting) a signed
// procedure call against this contract.
func (h *ContractHandle) BuildProcedureTransaction(ctx context.Context, name string, input ProcedureInput) (*SignedTransaction, error) {
	return h.h.BuildProcedureTransaction(ctx, name, input)
}

// SendProcedure builds and broadcasts a procedure call.
func (h *ContractHandle) SendProcedure(ctx context.Context, name string, input ProcedureInput) (*rpcclient.BroadcastResponse, error) {
	return h.h.SendProcedure(ctx, name, input)
}

// SendProcedureAndConfirm builds, broadcasts, and waits for tick-bounded
// confirmation of a procedure call, giving contract procedures the same
// build+broadcast+wait coverage as Client.SendAndConfirm (spec.md §4.H).
func (h *ContractHandle) SendProcedureAndConfirm(ctx context.Context, name string, input ProcedureInput, timeout, pollInterval time.Duration, token Token) (*ConfirmResult, error) {
	return h.h.SendProcedureAndConfirm(ctx, name, input, timeout, pollInterval, token)
}

// SendProcedureAndConfirmWithReceipt is SendProcedureAndConfirm's
// full-detail form: the same ConfirmResult, named explicitly for callers
// reaching for the ledger record.
func (h *ContractHandle) SendProcedureAndConfirmWithReceipt(ctx context.Context, name string, input ProcedureInput, timeout, pollInterval time.Duration, token Token) (*ConfirmResult, error) {
	return h.h.SendProcedureAndConfirmWithReceipt(ctx, name, input, timeout, pollInterval, token)
}

// EncodeSendMany packs up to 25 transfers into QX sendMany's fixed 1000-
// byte input layout (spec.md §4.G).
func EncodeSendMany(transfers []SendManyTransfer) ([]byte, error) {
	return sendmany.Encode(transfers)
}

// DecodeSendMany unpacks a 1000-byte QX sendMany input back into its
// transfer list.
func DecodeSendMany(buf []byte) ([]SendManyTransfer, error) {
	return sendmany.Decode(buf)
}

// LogStreamConfig configures ConnectLogStream.
type LogStreamConfig struct {
	URL           string
	Subscriptions []LogSubscription
	Store         CursorStore
	Handlers      LogHandlers
	CancelToken   Token
}

// ConnectLogStream opens a long-lived log-subscription session (spec.md
// §4.I). The engine does not auto-reconnect; callers that need
// reconnection call ConnectLogStream again with the last-known cursors.
func (c *Client) ConnectLogStream(cfg LogStreamConfig) (*logstream.Engine, error) {
	return logstream.Connect(logstream.Config{
		URL:           cfg.URL,
		Subscriptions: cfg.Subscriptions,
		Store:         cfg.Store,
		Handlers:      cfg.Handlers,
		CancelToken:   cfg.CancelToken,
		Log:           c.log,
	})
}
