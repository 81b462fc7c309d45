package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baobabichh/diabetic-diary-app/internal/form"
	"github.com/baobabichh/diabetic-diary-app/internal/media"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
)

// DefaultPollInterval is the status polling cadence.
const DefaultPollInterval = 3 * time.Second

// RecognitionBackend is the subset of the backend client the workflow uses.
// *api.Client implements it.
type RecognitionBackend interface {
	RecognizeFood(ctx context.Context, base64Image, mimeType string) (string, error)
	GetStatus(ctx context.Context, requestID string) (models.RecognitionStatus, error)
	GetResult(ctx context.Context, requestID string) (*models.FoodRecognitionResult, error)
	EditResult(ctx context.Context, requestID string, result *models.FoodRecognitionResult) error
	AddRecord(ctx context.Context, in models.RecordInput) error
}

// Phase is the workflow state.
type Phase string

const (
	PhaseNoImage       Phase = "NoImage"
	PhaseImageSelected Phase = "ImageSelected"
	PhaseSubmitted     Phase = "Submitted"
	PhaseResultReady   Phase = "ResultReady"
	PhaseFailed        Phase = "Failed"
	PhaseManualEntry   Phase = "ManualEntry"
)

// PollPolicy controls status polling.
type PollPolicy struct {
	// Interval between status polls. Zero selects DefaultPollInterval.
	Interval time.Duration

	// MaxAttempts stops polling after this many polls and fails the
	// workflow with ErrPollExhausted. Zero polls until a terminal status.
	MaxAttempts int
}

// Snapshot is a copy of the workflow state for display.
type Snapshot struct {
	Phase     Phase
	Image     *media.Image
	RequestID string
	Status    models.RecognitionStatus
	Loading   bool

	// Form is open in ResultReady and ManualEntry.
	Form *form.RecordForm

	// Err is the last user-facing failure, cleared by the next transition.
	Err error
}

// RecognitionService drives one recognition workflow: image selection,
// submission, status polling, result editing and saving.
type RecognitionService struct {
	backend RecognitionBackend
	policy  PollPolicy
	metrics *RecognitionMetrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	phase     Phase
	image     *media.Image
	requestID string
	status    models.RecognitionStatus
	form      *form.RecordForm
	loading   bool
	err       error
	gen       uint64
	stopPoll  context.CancelFunc
	listeners []func(Snapshot)
}

// NewRecognitionService creates an idle workflow. metrics may be nil.
func NewRecognitionService(backend RecognitionBackend, policy PollPolicy, metrics *RecognitionMetrics, logger *slog.Logger) *RecognitionService {
	if policy.Interval <= 0 {
		policy.Interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RecognitionService{
		backend: backend,
		policy:  policy,
		metrics: metrics,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		phase:   PhaseNoImage,
	}
}

// Subscribe registers fn for every state change.
func (s *RecognitionService) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current state.
func (s *RecognitionService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *RecognitionService) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:     s.phase,
		Image:     s.image,
		RequestID: s.requestID,
		Status:    s.status,
		Loading:   s.loading,
		Form:      s.form,
		Err:       s.err,
	}
}

// unlockAndNotify releases s.mu and delivers the new state to listeners.
func (s *RecognitionService) unlockAndNotify() {
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// resetLocked discards the current workflow. Late responses from the
// discarded workflow are dropped because the generation changes.
func (s *RecognitionService) resetLocked(phase Phase) {
	s.gen++
	s.stopPollLocked()
	s.phase = phase
	s.image = nil
	s.requestID = ""
	s.status = ""
	s.form = nil
	s.loading = false
	s.err = nil
}

// stopPollLocked cancels the poll context of the current request, if any.
func (s *RecognitionService) stopPollLocked() {
	if s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
	}
}

// SelectImage starts over with img.
func (s *RecognitionService) SelectImage(img *media.Image) {
	s.mu.Lock()
	s.resetLocked(PhaseImageSelected)
	s.image = img
	s.unlockAndNotify()
}

// StartManualEntry opens an empty record form with no recognition attached.
func (s *RecognitionService) StartManualEntry() *form.RecordForm {
	s.mu.Lock()
	s.resetLocked(PhaseManualEntry)
	f := form.New(form.Options{})
	s.form = f
	s.unlockAndNotify()
	return f
}

// Reset returns to NoImage.
func (s *RecognitionService) Reset() {
	s.mu.Lock()
	s.resetLocked(PhaseNoImage)
	s.unlockAndNotify()
}

// Submit uploads the selected image and starts polling. It returns once the
// backend has accepted the request; progress is reported to subscribers.
func (s *RecognitionService) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.loading:
		s.mu.Unlock()
		return ErrSubmitInProgress
	case s.image == nil:
		s.mu.Unlock()
		return ErrNoImage
	case s.requestID != "":
		s.mu.Unlock()
		return ErrAlreadySubmitted
	}
	s.loading = true
	s.err = nil
	gen := s.gen
	img := s.image
	s.unlockAndNotify()

	id, err := s.backend.RecognizeFood(ctx, img.Base64(), img.MIMEType)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return errSuperseded
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.unlockAndNotify()
		s.logger.Error("Food recognition failed", "error", err)
		return err
	}

	s.requestID = id
	s.status = models.StatusWaiting
	s.phase = PhaseSubmitted
	pollCtx, stop := context.WithCancel(s.ctx)
	s.stopPoll = stop
	s.wg.Add(1)
	go s.poll(pollCtx, gen, id)
	s.unlockAndNotify()

	s.logger.Info("Recognition submitted", "request_id", id)
	return nil
}

// poll checks the request status on every tick until it is terminal, the
// attempt limit is reached, or ctx is cancelled.
func (s *RecognitionService) poll(ctx context.Context, gen uint64, requestID string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.policy.Interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		attempts++
		s.metrics.pollAttempt()
		status, err := s.backend.GetStatus(ctx, requestID)
		if ctx.Err() != nil {
			return
		}
		exhausted := s.policy.MaxAttempts > 0 && attempts >= s.policy.MaxAttempts

		if err != nil {
			s.logger.Warn("Failed to check recognition status",
				"request_id", requestID,
				"attempt", attempts,
				"error", err,
			)
			if exhausted {
				s.fail(gen, ErrPollExhausted, outcomeExhausted)
				return
			}
			continue
		}

		if !s.setStatus(gen, status) {
			return
		}

		switch {
		case status == models.StatusDone:
			s.fetchResult(ctx, gen, requestID)
			return
		case status == models.StatusError:
			s.fail(gen, ErrRecognitionFailed, outcomeError)
			return
		case !status.IsPending():
			s.logger.Warn("Unknown recognition status, polling stopped",
				"request_id", requestID,
				"status", status,
			)
			return
		case exhausted:
			s.fail(gen, ErrPollExhausted, outcomeExhausted)
			return
		}
	}
}

// setStatus records a polled status. It reports false when the workflow has
// moved on and the poll result must be dropped.
func (s *RecognitionService) setStatus(gen uint64, status models.RecognitionStatus) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	changed := s.status != status
	s.status = status
	if !changed {
		s.mu.Unlock()
		return true
	}
	s.unlockAndNotify()
	return true
}

func (s *RecognitionService) fail(gen uint64, err error, outcome string) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseFailed
	s.err = err
	s.stopPollLocked()
	s.metrics.outcome(outcome)
	s.unlockAndNotify()
}

func (s *RecognitionService) fetchResult(ctx context.Context, gen uint64, requestID string) {
	result, err := s.backend.GetResult(ctx, requestID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Error("Error getting result", "request_id", requestID, "error", err)
		s.fail(gen, fmt.Errorf("%w: %w", ErrResultUnavailable, err), outcomeResultError)
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseResultReady
	s.stopPollLocked()
	s.form = form.New(form.Options{
		Result:        result,
		RecognitionID: requestID,
	})
	s.metrics.outcome(outcomeDone)
	s.unlockAndNotify()

	s.logger.Info("Recognition finished", "request_id", requestID, "products", len(result.Products))
}

// UpdateFoodItem changes a product's weight and persists the edited result.
// The local edit is kept even when the remote update fails; that error is
// returned for reporting only.
func (s *RecognitionService) UpdateFoodItem(ctx context.Context, index int, grams string) (models.FoodItem, error) {
	s.mu.Lock()
	if s.phase != PhaseResultReady || s.form == nil {
		s.mu.Unlock()
		return models.FoodItem{}, ErrNoResult
	}
	f := s.form
	requestID := s.requestID
	s.mu.Unlock()

	item, err := f.UpdateGrams(index, grams)
	if err != nil {
		return models.FoodItem{}, err
	}

	s.mu.Lock()
	s.unlockAndNotify()

	if err := s.backend.EditResult(ctx, requestID, f.Result()); err != nil {
		s.logger.Error("Failed to update food item", "request_id", requestID, "error", err)
		return item, err
	}
	return item, nil
}

// Save submits the open form as a record. On success the workflow returns
// to NoImage. On failure all state is kept so the user can retry.
func (s *RecognitionService) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.form == nil {
		s.mu.Unlock()
		return ErrNoForm
	}
	if s.loading {
		s.mu.Unlock()
		return ErrSubmitInProgress
	}
	// The form never calls back into the service, so its lock nests
	// under s.mu.
	input, errs := s.form.Submit()
	if len(errs) > 0 {
		s.mu.Unlock()
		return errs
	}
	gen := s.gen
	source := "manual"
	if s.phase == PhaseResultReady {
		source = "recognition"
	}
	s.loading = true
	s.err = nil
	s.unlockAndNotify()

	err := s.backend.AddRecord(ctx, input)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return errSuperseded
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.unlockAndNotify()
		s.logger.Error("Failed to add record", "error", err)
		return err
	}
	s.resetLocked(PhaseNoImage)
	s.metrics.recordSaved(source)
	s.unlockAndNotify()
	return nil
}

// Close stops any polling and waits for in-flight goroutines. Responses that
// arrive afterwards are dropped.
func (s *RecognitionService) Close() {
	s.mu.Lock()
	s.resetLocked(PhaseNoImage)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
