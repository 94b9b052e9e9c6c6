// Package contexthelpers stores request scoped values in the context.
package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey string

const traceIDContextKey = contextKey("traceID")

// SetTraceID returns r with traceID attached to its context.
func SetTraceID(r *http.Request, traceID string) *http.Request {
	ctx := context.WithValue(r.Context(), traceIDContextKey, traceID)
	return r.WithContext(ctx)
}

// TraceID returns the trace ID of the request, or the empty string outside a request.
func TraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(traceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}
