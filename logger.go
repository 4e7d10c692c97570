package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/engine/internal/notify"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for the engine and all its
// sub-packages. By default nothing is logged. Pass nil to restore the
// silent default.
//
// Log levels used by the engine:
//   - [slog.LevelDebug]: cache maintenance (transactions applied, buffers pooled)
//   - [slog.LevelInfo]: lifecycle events (driver created, device opened)
//   - [slog.LevelWarn]: recoverable resource failures and their fallbacks
//   - [slog.LevelError]: lost updates
//
// Records from the render path are delivered asynchronously; see Flush.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	notify.SetLogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Flush waits until every diagnostic sent so far has reached the logger.
func Flush() {
	notify.Flush()
}
