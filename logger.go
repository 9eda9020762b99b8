package pagealloc

import (
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// Logger wraps slog.Logger with allocator-specific context.
// This provides structured logging with consistent field names.
//
// Allocation failures are logged through a throttle: the first few are
// always reported, afterwards at most one per second.
type Logger struct {
	*slog.Logger
	failures *rate.Sometimes
}

func newLogger(l *slog.Logger) *Logger {
	return &Logger{
		Logger:   l,
		failures: &rate.Sometimes{First: 3, Interval: time.Second},
	}
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return newLogger(slog.New(handler))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return newLogger(slog.New(handler))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return newLogger(slog.New(handler))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return newLogger(slog.New(slog.DiscardHandler))
}

// WithHeap adds a heap ID field to the logger. The failure throttle is
// shared with the parent.
func (l *Logger) WithHeap(id uint64) *Logger {
	return &Logger{
		Logger:   l.Logger.With("heap", id),
		failures: l.failures,
	}
}

// LogArenaCreated logs the creation of a size-class arena.
func (l *Logger) LogArenaCreated(class int, itemSize uintptr) {
	l.Debug("arena created",
		"class", class,
		"item_size", itemSize,
	)
}

// LogArenaRetired logs an arena leaving the routing table because it ran
// out of capacity.
func (l *Logger) LogArenaRetired(class int, issued uint64) {
	l.Debug("arena retired",
		"class", class,
		"issued", issued,
	)
}

// LogLargeMapped logs a dedicated mapping for an oversized request.
func (l *Logger) LogLargeMapped(size uintptr) {
	l.Debug("large block mapped",
		"size", size,
	)
}

// LogPageReclaimed logs an unmapped region. slotSize is 0 for large blocks.
func (l *Logger) LogPageReclaimed(slotSize uintptr) {
	l.Debug("page reclaimed",
		"slot_size", slotSize,
	)
}

// LogAllocFailed logs a failed allocation, throttled.
func (l *Logger) LogAllocFailed(size uintptr, err error) {
	l.failures.Do(func() {
		l.Warn("allocation failed",
			"size", size,
			"error", err,
		)
	})
}

// LogUnmapFailed logs an error returned by the operating system on unmap.
func (l *Logger) LogUnmapFailed(err error) {
	l.Error("unmap failed",
		"error", err,
	)
}

// LogHeapClosed logs a heap teardown.
func (l *Logger) LogHeapClosed(sealed, reclaimed int, err error) {
	if err != nil {
		l.Error("heap close failed",
			"sealed", sealed,
			"reclaimed", reclaimed,
			"error", err,
		)
	} else {
		l.Debug("heap closed",
			"sealed", sealed,
			"reclaimed", reclaimed,
		)
	}
}
