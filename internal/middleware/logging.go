package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging logs every backend call with its path, status, request id and
// duration. Transport failures are logged at error, non-2xx responses at
// warn.
func Logging(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		requestID := GetRequestID(req.Context())

		resp, err := next.RoundTrip(req)

		duration := time.Since(start).Milliseconds()
		switch {
		case err != nil:
			slog.Error("Backend call failed",
				"method", req.Method,
				"path", req.URL.Path,
				"error", err,
				"request_id", requestID,
				"duration_ms", duration,
			)
		case resp.StatusCode >= 400:
			slog.Warn("Backend call rejected",
				"method", req.Method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
				"request_id", requestID,
				"duration_ms", duration,
			)
		default:
			slog.Debug("Backend call ok",
				"method", req.Method,
				"path", req.URL.Path,
				"status", resp.StatusCode,
				"request_id", requestID,
				"duration_ms", duration,
			)
		}

		return resp, err
	})
}

// statusRecorder captures the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingHandler logs all incoming requests on the server side.
func LoggingHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", r.Header.Get(RequestIDHeader),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
