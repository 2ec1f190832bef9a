package gcptr

import (
	"log/slog"
	"os"
	"unsafe"
)

// Logger wraps slog.Logger with gcptr-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithKey adds the registry key to the logger. Registries log through such
// a logger, so the Log methods below omit the key.
func (l *Logger) WithKey(key Key) *Logger {
	return &Logger{
		Logger: l.Logger.With("key", key.String()),
	}
}

// LogHandle logs a reference-count transition of a single allocation.
func (l *Logger) LogHandle(event string, addr unsafe.Pointer, refs int) {
	l.Debug("handle "+event,
		"addr", uintptr(addr),
		"refs", refs,
	)
}

// LogAllocation logs an allocation request.
func (l *Logger) LogAllocation(key Key, bytes int, err error) {
	if err != nil {
		l.Warn("allocation failed",
			"key", key.String(),
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.Debug("allocation completed",
			"key", key.String(),
			"bytes", bytes,
		)
	}
}

// LogCollect logs a collection sweep.
func (l *Logger) LogCollect(freed, remaining int, err error) {
	if err != nil {
		l.Error("collect completed with failures",
			"freed", freed,
			"remaining", remaining,
			"error", err,
		)
	} else {
		l.Debug("collect completed",
			"freed", freed,
			"remaining", remaining,
		)
	}
}

// LogShutdown logs a registry shutdown hook.
func (l *Logger) LogShutdown(freed, leaked int, err error) {
	switch {
	case err != nil:
		l.Error("shutdown failed",
			"freed", freed,
			"leaked", leaked,
			"error", err,
		)
	case leaked > 0:
		l.Warn("shutdown reclaimed referenced allocations",
			"freed", freed,
			"leaked", leaked,
		)
	default:
		l.Info("shutdown completed",
			"freed", freed,
		)
	}
}

// LogFreeError logs a block the allocator refused to take back.
func (l *Logger) LogFreeError(err *FreeError) {
	l.Error("free failed",
		"addr", err.Addr,
		"error", err.cause,
	)
}

// LogBlockLen logs a block whose length differs from its registry's.
func (l *Logger) LogBlockLen(addr unsafe.Pointer, want, got int) {
	l.Debug("block length differs from configuration",
		"addr", uintptr(addr),
		"length", want,
		"block_length", got,
	)
}
