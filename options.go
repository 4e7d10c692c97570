package engine

import (
	"log/slog"
	"time"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e, err := engine.New(
//	    engine.WithBackend("software"),
//	    engine.WithFrameBudget(4*time.Millisecond),
//	)
type Option func(*options)

type options struct {
	cfg    Config
	logger *slog.Logger
}

// WithConfig replaces every setting with cfg. Options after it override
// single settings.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger installs l as the engine logger, as SetLogger does.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackend selects a registered driver backend by name.
func WithBackend(name string) Option {
	return func(o *options) { o.cfg.Backend = name }
}

// WithFrameBudget bounds mesh cache maintenance per frame.
func WithFrameBudget(d time.Duration) Option {
	return func(o *options) { o.cfg.FrameBudget = Duration(d) }
}

// WithTransactionTTL sets how long queued mesh changes stay valid for
// meshes created by the engine.
func WithTransactionTTL(d time.Duration) Option {
	return func(o *options) { o.cfg.TransactionTTL = Duration(d) }
}

// WithNotifyWorkers sizes the diagnostics dispatcher.
func WithNotifyWorkers(workers, queue int) Option {
	return func(o *options) {
		o.cfg.NotifyWorkers = workers
		o.cfg.NotifyQueue = queue
	}
}

// WithDebugTracker counts buffer allocations. A non-zero budget also caps
// live buffer bytes.
func WithDebugTracker(budget uint64) Option {
	return func(o *options) {
		o.cfg.DebugTracker = true
		o.cfg.MemoryBudget = budget
	}
}

// WithBufferPool keeps up to perKey released buffers per type and size
// class in the software backend. Zero disables pooling.
func WithBufferPool(perKey int) Option {
	return func(o *options) { o.cfg.BufferPool = perKey }
}
