package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID annotates the context with a per-lookup correlation
// identifier. An empty id generates a fresh UUID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(correlationIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
