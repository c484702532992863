package cyclegc

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/cyclegc/gc"
)

// Logger wraps slog.Logger with cyclegc-specific context.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithGeneration adds a generation field to the logger.
func (l *Logger) WithGeneration(gen int) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", gen),
	}
}

// WithThread adds a thread slot field to the logger.
func (l *Logger) WithThread(id int32) *Logger {
	return &Logger{
		Logger: l.Logger.With("thread", id),
	}
}

// LogCollection logs an explicit collection.
func (l *Logger) LogCollection(ctx context.Context, gen int, stats gc.Stats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection failed",
			"generation", gen,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "collection completed",
		"generation", gen,
		"collected", stats.Collected,
		"uncollectable", stats.Uncollectable,
	)
}

// LogThreadAttach logs a thread attaching to the runtime.
func (l *Logger) LogThreadAttach(ctx context.Context, id int32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "thread attach failed",
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "thread attached",
		"thread", id,
	)
}

// LogThreadDetach logs a thread leaving the runtime.
func (l *Logger) LogThreadDetach(ctx context.Context, id int32) {
	l.DebugContext(ctx, "thread detached",
		"thread", id,
	)
}

// LogCensus logs a census write.
func (l *Logger) LogCensus(ctx context.Context, tracked int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "census write failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "census written",
		"tracked", tracked,
	)
}
