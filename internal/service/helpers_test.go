package service

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baobabichh/diabetic-diary-app/internal/api"
	"github.com/baobabichh/diabetic-diary-app/internal/fakebackend"
	"github.com/baobabichh/diabetic-diary-app/internal/media"
	"github.com/baobabichh/diabetic-diary-app/internal/models"
	"github.com/baobabichh/diabetic-diary-app/internal/session"
)

// setupTestBackend starts an in-memory backend and returns a client bound to
// a fresh session.
func setupTestBackend(t *testing.T, opts ...fakebackend.Option) (*api.Client, *session.Session) {
	t.Helper()

	srv := httptest.NewServer(fakebackend.New(opts...).Handler())
	t.Cleanup(srv.Close)

	sess := session.New(nil)
	client, err := api.New(srv.URL, sess)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, sess
}

// signedInBackend is setupTestBackend plus a registered, signed-in user.
func signedInBackend(t *testing.T, opts ...fakebackend.Option) (*api.Client, *session.Session) {
	t.Helper()
	client, sess := setupTestBackend(t, opts...)
	ctx := context.Background()

	token, err := client.Register(ctx, "user@example.com", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sess.SignIn(ctx, token)
	return client, sess
}

func testImage(t *testing.T) *media.Image {
	t.Helper()
	img, err := media.New("meal.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	if err != nil {
		t.Fatalf("media.New failed: %v", err)
	}
	return img
}

// mockBackend implements RecognitionBackend and HistoryBackend with
// per-test function fields. Unset functions succeed with zero values.
type mockBackend struct {
	recognizeFn func(ctx context.Context, b64, mime string) (string, error)
	statusFn    func(ctx context.Context, id string) (models.RecognitionStatus, error)
	resultFn    func(ctx context.Context, id string) (*models.FoodRecognitionResult, error)
	editFn      func(ctx context.Context, id string, r *models.FoodRecognitionResult) error
	addFn       func(ctx context.Context, in models.RecordInput) error
	idsFn       func(ctx context.Context) ([]string, error)
	recordsFn   func(ctx context.Context, ids []string) ([]models.Record, error)

	statusCalls  atomic.Int32
	resultCalls  atomic.Int32
	addCalls     atomic.Int32
	recordsCalls atomic.Int32
}

func (m *mockBackend) RecognizeFood(ctx context.Context, b64, mime string) (string, error) {
	if m.recognizeFn != nil {
		return m.recognizeFn(ctx, b64, mime)
	}
	return "req-1", nil
}

func (m *mockBackend) GetStatus(ctx context.Context, id string) (models.RecognitionStatus, error) {
	m.statusCalls.Add(1)
	if m.statusFn != nil {
		return m.statusFn(ctx, id)
	}
	return models.StatusDone, nil
}

func (m *mockBackend) GetResult(ctx context.Context, id string) (*models.FoodRecognitionResult, error) {
	m.resultCalls.Add(1)
	if m.resultFn != nil {
		return m.resultFn(ctx, id)
	}
	return &models.FoodRecognitionResult{Products: []models.FoodItem{
		{Name: "rice", Carbs: 28, Grams: 100, Ratio: 28},
	}}, nil
}

func (m *mockBackend) EditResult(ctx context.Context, id string, r *models.FoodRecognitionResult) error {
	if m.editFn != nil {
		return m.editFn(ctx, id, r)
	}
	return nil
}

func (m *mockBackend) AddRecord(ctx context.Context, in models.RecordInput) error {
	m.addCalls.Add(1)
	if m.addFn != nil {
		return m.addFn(ctx, in)
	}
	return nil
}

func (m *mockBackend) GetRecordIDs(ctx context.Context) ([]string, error) {
	if m.idsFn != nil {
		return m.idsFn(ctx)
	}
	return nil, nil
}

func (m *mockBackend) GetRecordsByIDs(ctx context.Context, ids []string) ([]models.Record, error) {
	m.recordsCalls.Add(1)
	if m.recordsFn != nil {
		return m.recordsFn(ctx, ids)
	}
	return nil, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitForPhase(t *testing.T, svc *RecognitionService, phase Phase) Snapshot {
	t.Helper()
	waitFor(t, "phase "+string(phase), func() bool {
		return svc.Snapshot().Phase == phase
	})
	return svc.Snapshot()
}

// fastPolicy keeps tests quick.
var fastPolicy = PollPolicy{Interval: 5 * time.Millisecond}
