// Package retry implements the exponential-backoff helper named in
// spec.md §4.K ("Errors / retry / misc glue"). It is deliberately small:
// callers own their own retry loop and call Backoff.Next/Sleep between
// attempts.
package retry

import (
	"time"

	"github.com/qubickit/sdk-go/internal/cancel"
)

// Backoff produces a doubling delay sequence capped at Max, starting from
// Base. It mirrors the reconnect loop shape used by the log-stream
// transport's underlying WebSocket client.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	current time.Duration
}

// NewBackoff creates a Backoff starting at base, doubling on every call to
// Next up to max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max, current: base}
}

// Next returns the delay to wait before the next attempt and advances the
// internal doubling counter.
func (b *Backoff) Next() time.Duration {
	d := b.current
	if d <= 0 {
		d = b.Base
	}
	next := d * 2
	if next > b.Max || next <= 0 {
		next = b.Max
	}
	b.current = next
	return d
}

// Reset restores the backoff to its initial base delay, typically called
// after a successful attempt.
func (b *Backoff) Reset() {
	b.current = b.Base
}

// Sleep waits for the next backoff delay or until token fires, whichever
// happens first.
func (b *Backoff) Sleep(token cancel.Token) error {
	return cancel.Sleep(token, b.Next())
}
