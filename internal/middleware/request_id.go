package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id on every backend call.
const RequestIDHeader = "X-Request-ID"

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID returns a context that makes RequestID reuse id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID extracts the request id from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID sets X-Request-ID on outgoing requests that lack one. The id is
// taken from the context when present, otherwise a new UUID is generated.
// The id is stored on the request context for the middlewares that follow.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		id := req.Header.Get(RequestIDHeader)
		if id == "" {
			id = GetRequestID(req.Context())
		}
		if id == "" {
			id = uuid.New().String()
		}

		req = req.Clone(WithRequestID(req.Context(), id))
		req.Header.Set(RequestIDHeader, id)
		return next.RoundTrip(req)
	})
}
