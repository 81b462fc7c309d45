// Package fakebackend is an in-memory implementation of the recognition
// backend's HTTP contract. It backs the client's end-to-end tests and the
// local development server in cmd/fakebackend.
//
// Recognition requests advance one step per status poll:
// Waiting, Processing, then Done (or Error when the recognizer fails).
package fakebackend

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baobabichh/diabetic-diary-app/internal/media"
	"github.com/baobabichh/diabetic-diary-app/internal/middleware"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

// CreateTSLayout is the timestamp format of Record.CreateTS.
const CreateTSLayout = "2006-01-02 15:04:05"

type user struct {
	id           string
	email        string
	passwordHash string
}

type recognition struct {
	id     string
	userID string
	status models.RecognitionStatus
	polls  int
	result *models.FoodRecognitionResult
	err    error
}

// Server holds all backend state in memory.
type Server struct {
	recognizer    Recognizer
	pollsToFinish int
	now           func() time.Time
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec

	mu           sync.Mutex
	usersByEmail map[string]*user
	tokens       map[string]string // token -> user id
	recognitions map[string]*recognition
	records      map[string]models.Record
	recordOrder  map[string][]string // user id -> record ids, oldest first
}

// Option configures a Server.
type Option func(*Server)

// WithRecognizer replaces the default StaticRecognizer.
func WithRecognizer(r Recognizer) Option {
	return func(s *Server) { s.recognizer = r }
}

// WithPollsToFinish sets how many status polls a request takes to reach a
// terminal status. Values below 1 are treated as 1.
func WithPollsToFinish(n int) Option {
	return func(s *Server) {
		if n < 1 {
			n = 1
		}
		s.pollsToFinish = n
	}
}

// WithClock overrides the time source used for CreateTS.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates an empty backend.
func New(opts ...Option) *Server {
	s := &Server{
		recognizer:    StaticRecognizer{Products: DefaultProducts},
		pollsToFinish: 2,
		now:           time.Now,
		registry:      prometheus.NewRegistry(),
		usersByEmail:  make(map[string]*user),
		tokens:        make(map[string]string),
		recognitions:  make(map[string]*recognition),
		records:       make(map[string]models.Record),
		recordOrder:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.requests = promauto.With(s.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "fakebackend",
		Name:      "requests_total",
		Help:      "Handled requests by route and status code.",
	}, []string{"route", "code"})
	return s
}

// Handler returns the HTTP routes of the backend contract plus /metrics and
// /health.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods("GET")

	r.HandleFunc("/register_user", s.handleRegister).Methods("POST")
	r.HandleFunc("/login_user", s.handleLogin).Methods("POST")
	r.HandleFunc("/recognize_food", s.handleRecognize).Methods("POST")
	r.HandleFunc("/get_status", s.handleGetStatus).Methods("GET")
	r.HandleFunc("/get_result", s.handleGetResult).Methods("GET")
	r.HandleFunc("/edit_result", s.handleEditResult).Methods("GET")
	r.HandleFunc("/add_record", s.handleAddRecord).Methods("POST")
	r.HandleFunc("/get_record_ids", s.handleGetRecordIDs).Methods("GET")
	r.HandleFunc("/get_records_by_ids", s.handleGetRecordsByIDs).Methods("GET")

	r.Use(s.countRequests, parseForm)
	return middleware.LoggingHandler(r)
}

// parseForm reads query and body parameters up front with the body bounded
// by media.MaxUploadSize, so handlers never see a silently truncated form.
func parseForm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize)
		if err := r.ParseForm(); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				slog.Warn("Request body too large", "path", r.URL.Path, "limit", tooLarge.Limit)
				writeMsg(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			slog.Warn("Invalid form data", "path", r.URL.Path, "error", err)
			writeMsg(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// countRequests records every routed request in the backend registry.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.requests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (r *codeRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}
