// Package logger decorates slog handlers with run-scoped attributes.
package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const runIDKey ctxKey = 0

// WithRunID stamps the batch run's id onto the context so every
// context-aware log line carries it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunID returns the run id carried by the context, or "unknown".
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return "unknown"
}

type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
