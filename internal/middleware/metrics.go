package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts backend calls by operation and status class.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the client metrics with reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend calls by operation and status class.",
		}, []string{"operation", "status"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "diary",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Transport records one observation per round trip. The operation label is
// the last path segment, e.g. "get_status".
func (m *Metrics) Transport(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		op := operation(req.URL.Path)
		start := time.Now()

		resp, err := next.RoundTrip(req)

		m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		status := "error"
		if err == nil {
			status = statusClass(resp.StatusCode)
		}
		m.Requests.WithLabelValues(op, status).Inc()
		return resp, err
	})
}

func operation(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return "root"
	}
	return path
}
