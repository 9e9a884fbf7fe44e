// Package confirm implements the tick-bounded confirmation state machine
// (spec.md §4.C): poll the archive's last-processed-tick until it reaches
// a target, then resolve the transaction's presence or absence.
package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/rpcclient"
	"github.com/qubickit/sdk-go/internal/sdkerr"
)

// Outcome enumerates why Wait stopped.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeAborted   Outcome = "aborted"
)

var (
	// ErrAborted is returned when the cancel token fired before resolution.
	ErrAborted = sdkerr.NewError(sdkerr.ErrKindTxConfirmationAborted, "confirm: aborted", nil)
	// ErrNotFound is returned when the target tick was reached and the
	// archive reported absence at least once afterward.
	ErrNotFound = sdkerr.NewError(sdkerr.ErrKindTxNotFound, "confirm: transaction not found after target tick", nil)
	// ErrTimeout is returned when timeoutMs elapsed before either outcome.
	ErrTimeout = sdkerr.NewError(sdkerr.ErrKindTxConfirmationTimeout, "confirm: timed out waiting for confirmation", nil)
)

// Params configures a single Wait call.
type Params struct {
	TxId           string
	TargetTick     uint64
	Timeout        time.Duration
	PollInterval   time.Duration
	CancelToken    cancel.Token
	Clock          clock.Clock
}

const (
	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 1 * time.Second
)

// Engine polls a single rpcclient.Client to resolve transaction outcomes.
type Engine struct {
	client *rpcclient.Client
	log    *obslog.Logger
}

// New constructs a confirmation Engine over the given RPC client.
func New(client *rpcclient.Client, log *obslog.Logger) *Engine {
	if log == nil {
		log = obslog.NewNop()
	}
	return &Engine{client: client, log: log}
}

// Wait implements the single state machine described in spec.md §4.C,
// returning the confirmed record on success.
func (e *Engine) Wait(ctx context.Context, p Params) (*rpcclient.QueryTransaction, Outcome, error) {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	pollInterval := p.PollInterval
	if pollInterval == 0 {
		pollInterval = defaultPollInterval
	}

	internalToken := cancel.New()
	defer internalToken.Fire()
	token := p.CancelToken
	if token.IsZero() {
		token = internalToken
	} else {
		token = cancel.Merge(token, internalToken)
	}

	deadline := clk.Now().Add(timeout)
	reachedTarget := false
	seenNotFoundAfterTarget := false

	for {
		if token.Cancelled() {
			e.log.Debugw("confirm aborted", "txId", p.TxId)
			return nil, OutcomeAborted, ErrAborted
		}

		if clk.Now().After(deadline) {
			if reachedTarget && seenNotFoundAfterTarget {
				return nil, OutcomeNotFound, ErrNotFound
			}
			return nil, OutcomeTimeout, ErrTimeout
		}

		lastProcessed, err := e.client.GetLastProcessedTick(ctx)
		if err != nil {
			return nil, "", err
		}

		if lastProcessed < p.TargetTick {
			if err := sleepCancellable(clk, token, pollInterval); err != nil {
				return nil, OutcomeAborted, ErrAborted
			}
			continue
		}

		reachedTarget = true

		record, err := e.client.GetTransactionByHash(ctx, p.TxId)
		if err != nil {
			var rpcErr *rpcclient.RPCError
			if errors.As(err, &rpcErr) && rpcErr.Status == 404 {
				seenNotFoundAfterTarget = true
				if err := sleepCancellable(clk, token, pollInterval); err != nil {
					return nil, OutcomeAborted, ErrAborted
				}
				continue
			}
			return nil, "", err
		}

		e.log.Infow("confirm resolved", "txId", p.TxId, "tick", record.TickNumber.Value())
		return record, OutcomeConfirmed, nil
	}
}

func sleepCancellable(clk clock.Clock, token cancel.Token, d time.Duration) error {
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-token.Done():
		return ErrAborted
	}
}
