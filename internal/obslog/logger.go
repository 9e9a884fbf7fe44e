// Package obslog is the ambient structured-logging glue threaded through
// the RPC transport, queue, confirmation engine, log-stream engine, and
// vault. It wraps zap the way the teacher's ecosystem (streamingfast/
// logging, a zap wrapper pulled transitively into the teacher's own
// go.mod) does, rather than the teacher's own ad hoc fmt.Printf calls.
package obslog

import "go.uber.org/zap"

// Logger is the small facade every component depends on. Components never
// import zap directly; they take a *Logger so the concrete backend (zap,
// or a no-op sink in tests) stays swappable.
type Logger struct {
	s *zap.SugaredLogger
}

// New wraps an existing *zap.Logger.
func New(base *zap.Logger) *Logger {
	if base == nil {
		return NewNop()
	}
	return &Logger{s: base.Sugar()}
}

// NewProduction builds a Logger using zap's production defaults (JSON
// encoding, info level).
func NewProduction() (*Logger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(base), nil
}

// NewNop returns a Logger that discards everything, the default for
// library consumers who never configured one and for unit tests.
func NewNop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// With returns a child Logger with the given structured fields attached to
// every subsequent call.
func (l *Logger) With(kv ...interface{}) *Logger {
	if l == nil {
		return NewNop()
	}
	return &Logger{s: l.s.With(kv...)}
}

func (l *Logger) Debugw(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.s.Debugw(msg, kv...)
}

func (l *Logger) Infow(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.s.Infow(msg, kv...)
}

func (l *Logger) Warnw(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.s.Warnw(msg, kv...)
}

func (l *Logger) Errorw(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.s.Errorw(msg, kv...)
}

// Sync flushes buffered log entries, mirroring zap.Logger.Sync.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.s.Sync()
}
