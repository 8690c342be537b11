// Package debug carries the --debug switch through a context and configures
// the process logger to match.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey struct{}

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(contextKey{}).(bool); ok {
		return v
	}
	return false
}

// SetupLogger installs a text handler on stderr, at Debug level when enabled
// and Warn otherwise.
func SetupLogger(enabled bool) {
	SetupLoggerTo(os.Stderr, enabled)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer, enabled bool) *slog.Logger {
	level := slog.LevelWarn
	if enabled {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
