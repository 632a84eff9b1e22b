// Package reqctx carries per-request identifiers through a context.Context,
// the way pkg/environment carries the deployment environment.
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID retrieves the request id from ctx, or "" if none was attached.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// NewRequestID generates a fresh request id for a request that arrived
// without one of its own.
func NewRequestID() string {
	return uuid.NewString()
}
