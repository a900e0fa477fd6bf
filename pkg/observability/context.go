package observability

import (
	"context"

	"github.com/google/uuid"
)

type correlationIDKey struct{}

// CorrelationIDKey is the log attribute carrying the correlation id.
const CorrelationIDKey = "correlation_id"

// WithCorrelationID stores a correlation id in ctx. An empty id is replaced
// with a fresh UUID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
