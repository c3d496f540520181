package reqctx

import (
	"context"
)

type ctxKey string

const requestIDKey ctxKey = "requestID"

// WithRequestID creates a context scoped to the given correlation id.
// Used by the HTTP middleware and re-entered by the command bus when a
// saga dispatches a command outside the original call stack.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID extracts the correlation id, empty if none set
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
