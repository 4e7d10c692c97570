// Package notify is the diagnostics channel used by the engine core.
//
// Send is fire-and-forget: records are formatted on a worker pool and
// handed to the configured slog.Logger. Callers never block on delivery
// and nothing in the cache or render path depends on it.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/engine/internal/parallel"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

var (
	poolMu sync.Mutex
	pool   atomic.Pointer[parallel.WorkerPool]
)

// Default dispatcher sizing.
const (
	DefaultWorkers = 1
	DefaultQueue   = 256
)

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger replaces the sink. Nil restores silence.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current sink.
func Logger() *slog.Logger { return loggerPtr.Load() }

// Configure restarts the dispatcher with the given sizing. Records still
// queued on the previous dispatcher are delivered first.
func Configure(workers, queue int) {
	poolMu.Lock()
	defer poolMu.Unlock()

	old := pool.Swap(parallel.NewWorkerPool(workers, queue))
	if old != nil {
		old.Close()
	}
}

func dispatcher() *parallel.WorkerPool {
	if p := pool.Load(); p != nil {
		return p
	}
	poolMu.Lock()
	defer poolMu.Unlock()
	if p := pool.Load(); p != nil {
		return p
	}
	p := parallel.NewWorkerPool(DefaultWorkers, DefaultQueue)
	pool.Store(p)
	return p
}

// Send emits msg at level without blocking. Records below the logger's
// level are discarded before reaching the dispatcher.
func Send(level slog.Level, msg string, args ...any) {
	l := Logger()
	if !l.Enabled(context.Background(), level) {
		return
	}
	dispatcher().Submit(func() {
		l.Log(context.Background(), level, msg, args...)
	})
}

// Debug sends msg at debug level.
func Debug(msg string, args ...any) { Send(slog.LevelDebug, msg, args...) }

// Info sends msg at info level.
func Info(msg string, args ...any) { Send(slog.LevelInfo, msg, args...) }

// Warn sends msg at warn level.
func Warn(msg string, args ...any) { Send(slog.LevelWarn, msg, args...) }

// Error sends msg at error level.
func Error(msg string, args ...any) { Send(slog.LevelError, msg, args...) }

// Flush waits until every record sent so far has been delivered.
func Flush() {
	if p := pool.Load(); p != nil {
		p.Flush()
	}
}

// Dropped reports how many records were discarded because the dispatcher
// queue was full.
func Dropped() uint64 {
	if p := pool.Load(); p != nil {
		return p.Dropped()
	}
	return 0
}

// Shutdown delivers pending records and stops the dispatcher. A later Send
// starts a fresh one.
func Shutdown() {
	poolMu.Lock()
	defer poolMu.Unlock()
	if p := pool.Swap(nil); p != nil {
		p.Close()
	}
}

// Once emits a record the first time Send is called and ignores the rest.
// The zero value is ready to use.
type Once struct {
	done atomic.Bool
}

// Send emits msg at level unless this Once already fired. It reports
// whether the record was emitted.
func (o *Once) Send(level slog.Level, msg string, args ...any) bool {
	if !o.done.CompareAndSwap(false, true) {
		return false
	}
	Send(level, msg, args...)
	return true
}

// Fired reports whether the one-shot record was already emitted.
func (o *Once) Fired() bool { return o.done.Load() }

// Reset re-arms the one-shot.
func (o *Once) Reset() { o.done.Store(false) }
