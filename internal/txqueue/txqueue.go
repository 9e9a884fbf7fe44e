// Package txqueue serializes at most one in-flight transaction per source
// identity while allowing preemption by a later tick target (spec.md
// §4.E). It follows the teacher's sync.RWMutex-guarded map store (e.g.
// src/chainadapter/storage/memory.go) generalized to a per-key critical
// section plus an append-only history list.
package txqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qubickit/sdk-go/internal/cancel"
	"github.com/qubickit/sdk-go/internal/obslog"
	"github.com/qubickit/sdk-go/internal/sdkerr"
	"github.com/qubickit/sdk-go/internal/txbuilder"
)

// Policy selects queue behavior on conflict with an already-active item
// for the same source identity.
type Policy string

const (
	PolicyWaitForConfirm   Policy = "waitForConfirm"
	PolicyReject           Policy = "reject"
	PolicyReplaceHigherTick Policy = "replaceHigherTick"
)

// Status is a QueueItem's lifecycle state (spec.md §4.E).
type Status string

const (
	StatusPending     Status = "pending"
	StatusSubmitted   Status = "submitted"
	StatusConfirming  Status = "confirming"
	StatusConfirmed   Status = "confirmed"
	StatusFailed      Status = "failed"
	StatusSuperseded  Status = "superseded"
)

// Item is the QueueItem<R> record from spec.md §3.
type Item struct {
	ID             string
	SourceIdentity string
	TargetTick     uint64
	CreatedAt      time.Time

	mu     sync.Mutex
	status Status
	txId   string
	result *txbuilder.ConfirmResult
	err    error
	token  cancel.Token
}

func (it *Item) Status() Status {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.status
}

func (it *Item) setStatus(s Status) {
	it.mu.Lock()
	it.status = s
	it.mu.Unlock()
}

// Result returns the item's terminal confirm result, if any.
func (it *Item) Result() *txbuilder.ConfirmResult {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.result
}

// Err returns the item's terminal error, if any.
func (it *Item) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

// TxId returns the item's broadcast transaction id once known.
func (it *Item) TxId() string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.txId
}

// ErrQueuePolicyRejected is returned by Enqueue under the reject and
// replaceHigherTick policies when the conflicting enqueue cannot proceed.
var ErrQueuePolicyRejected = sdkerr.NewError(sdkerr.ErrKindQueuePolicyRejected, "txqueue: enqueue rejected by queue policy", nil)

type sourceState struct {
	mu      sync.Mutex
	active  *Item
	history []*Item
}

// Queue serializes builds per source identity.
type Queue struct {
	builder *txbuilder.Builder
	policy  Policy
	log     *obslog.Logger

	mu      sync.Mutex // guards sources map membership only
	sources map[string]*sourceState
}

// New constructs a Queue with the given process-wide default policy.
func New(builder *txbuilder.Builder, policy Policy, log *obslog.Logger) *Queue {
	if policy == "" {
		policy = PolicyWaitForConfirm
	}
	if log == nil {
		log = obslog.NewNop()
	}
	return &Queue{
		builder: builder,
		policy:  policy,
		log:     log,
		sources: make(map[string]*sourceState),
	}
}

func (q *Queue) sourceFor(identity string) *sourceState {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.sources[identity]
	if !ok {
		s = &sourceState{}
		q.sources[identity] = s
	}
	return s
}

// Enqueue builds, broadcasts, and confirms a transaction for req's source
// identity under the queue's policy, serializing against any other active
// item for the same identity. externalToken, if non-zero, is merged into
// the item's own cancel token so a caller-supplied token aborts the wait
// the same way a supersession does.
func (q *Queue) Enqueue(ctx context.Context, sourceIdentity string, req txbuilder.BuildRequest, targetTick uint64, timeout, pollInterval time.Duration, externalToken cancel.Token) (*Item, error) {
	src := q.sourceFor(sourceIdentity)

	item := &Item{
		ID:             uuid.NewString(),
		SourceIdentity: sourceIdentity,
		TargetTick:     targetTick,
		CreatedAt:      time.Now(),
		status:         StatusPending,
		token:          cancel.Merge(externalToken, cancel.New()),
	}

	src.mu.Lock()
	conflict := src.active
	if conflict == nil {
		src.active = item
		src.mu.Unlock()
	} else {
		switch q.policy {
		case PolicyReject:
			src.mu.Unlock()
			item.setStatus(StatusFailed)
			item.err = ErrQueuePolicyRejected
			return item, ErrQueuePolicyRejected

		case PolicyReplaceHigherTick:
			if targetTick <= conflict.TargetTick {
				src.mu.Unlock()
				item.setStatus(StatusFailed)
				item.err = ErrQueuePolicyRejected
				return item, ErrQueuePolicyRejected
			}
			src.active = item
			src.mu.Unlock()
			q.supersede(src, conflict)

		case PolicyWaitForConfirm:
			fallthrough
		default:
			src.mu.Unlock()
			q.awaitTerminal(conflict)
			src.mu.Lock()
			src.active = item
			src.mu.Unlock()
		}
	}

	q.run(ctx, src, item, req, timeout, pollInterval)
	return item, item.Err()
}

func (q *Queue) run(ctx context.Context, src *sourceState, item *Item, req txbuilder.BuildRequest, timeout, pollInterval time.Duration) {
	defer q.release(src, item)

	item.setStatus(StatusSubmitted)
	target := item.TargetTick
	req.TargetTick = &target

	sent, err := q.builder.Send(ctx, req)
	if err != nil {
		item.setStatus(StatusFailed)
		item.mu.Lock()
		item.err = err
		item.mu.Unlock()
		return
	}
	item.mu.Lock()
	item.txId = sent.Broadcast.TransactionId
	item.mu.Unlock()

	item.setStatus(StatusConfirming)
	record, outcome, err := q.builder.WaitOnly(ctx, sent, timeout, pollInterval, item.token)

	item.mu.Lock()
	defer item.mu.Unlock()
	if item.status == StatusSuperseded {
		return
	}
	if err != nil {
		item.status = StatusFailed
		item.err = err
		return
	}
	item.status = StatusConfirmed
	item.result = &txbuilder.ConfirmResult{
		Signed:    sent.Signed,
		Broadcast: sent.Broadcast,
		Outcome:   outcome,
		Record:    record,
	}
}

func (q *Queue) supersede(src *sourceState, victim *Item) {
	victim.mu.Lock()
	if victim.status != StatusConfirmed && victim.status != StatusFailed {
		victim.status = StatusSuperseded
	}
	victim.mu.Unlock()
	victim.token.Fire()
}

// awaitTerminal blocks until item reaches a terminal status. Since run()
// is synchronous within the caller's goroutine under waitForConfirm, this
// only matters when a second goroutine races the same source identity;
// it polls the item's status once a millisecond.
func (q *Queue) awaitTerminal(item *Item) {
	for {
		switch item.Status() {
		case StatusConfirmed, StatusFailed, StatusSuperseded:
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (q *Queue) release(src *sourceState, item *Item) {
	src.mu.Lock()
	if src.active == item {
		src.active = nil
	}
	src.history = append(src.history, item)
	src.mu.Unlock()
}

// History returns the append-only history of items for a source identity,
// oldest first. The currently active item, if any, is not yet included.
func (q *Queue) History(sourceIdentity string) []*Item {
	src := q.sourceFor(sourceIdentity)
	src.mu.Lock()
	defer src.mu.Unlock()
	out := make([]*Item, len(src.history))
	copy(out, src.history)
	return out
}

// Active returns the currently active item for a source identity, if any.
func (q *Queue) Active(sourceIdentity string) *Item {
	src := q.sourceFor(sourceIdentity)
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.active
}
