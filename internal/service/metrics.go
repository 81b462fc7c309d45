package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RecognitionMetrics counts workflow activity.
type RecognitionMetrics struct {
	PollAttempts prometheus.Counter
	Outcomes     *prometheus.CounterVec
	RecordsSaved *prometheus.CounterVec
}

// NewRecognitionMetrics registers the workflow metrics with reg.
func NewRecognitionMetrics(reg prometheus.Registerer) *RecognitionMetrics {
	f := promauto.With(reg)
	return &RecognitionMetrics{
		PollAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "recognition",
			Name:      "poll_attempts_total",
			Help:      "Status polls issued for recognition requests.",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "recognition",
			Name:      "outcomes_total",
			Help:      "Recognition requests by final outcome.",
		}, []string{"outcome"}),
		RecordsSaved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "records",
			Name:      "saved_total",
			Help:      "Records saved, by entry path.",
		}, []string{"source"}),
	}
}

// Outcome labels.
const (
	outcomeDone        = "done"
	outcomeError       = "error"
	outcomeExhausted   = "exhausted"
	outcomeResultError = "result_error"
)

func (m *RecognitionMetrics) pollAttempt() {
	if m != nil {
		m.PollAttempts.Inc()
	}
}

func (m *RecognitionMetrics) outcome(o string) {
	if m != nil {
		m.Outcomes.WithLabelValues(o).Inc()
	}
}

func (m *RecognitionMetrics) recordSaved(source string) {
	if m != nil {
		m.RecordsSaved.WithLabelValues(source).Inc()
	}
}
