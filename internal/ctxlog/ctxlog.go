// Package ctxlog carries the build's slog.Logger through context.Context so
// every pipeline stage logs with the same handler and attributes.
package ctxlog

import (
	"context"
	"log/slog"
)

type key struct{}

var loggerKey = key{}

// WithLogger returns a copy of ctx that carries logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default global
// logger when there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// Stage returns the context logger scoped to a named pipeline stage.
func Stage(ctx context.Context, name string) *slog.Logger {
	return FromContext(ctx).With("stage", name)
}
