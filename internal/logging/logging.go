// Package logging carries a *slog.Logger through context.Context so that
// request-scoped attributes survive across package boundaries.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// IntoContext returns a child context carrying the given logger.
func IntoContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the process default when
// none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}
