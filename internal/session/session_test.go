package session

import (
	"context"
	"errors"
	"testing"
)

// mockStore is a storage.Store whose behavior is set per test.
type mockStore struct {
	data   map[string]string
	getErr error
	setErr error
	delErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string]string{}}
}

func (m *mockStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockStore) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

func (m *mockStore) Close() error { return nil }

func TestInitRestoresToken(t *testing.T) {
	store := newMockStore()
	store.data[TokenKey] = "tok-1"

	s := New(store)
	s.Init(context.Background())

	token, ok := s.Token()
	if !ok || token != "tok-1" {
		t.Errorf("Token() = (%q, %v), want (tok-1, true)", token, ok)
	}
}

func TestInitStorageFailure(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("disk gone")

	s := New(store)
	s.Init(context.Background())

	if _, ok := s.Token(); ok {
		t.Error("a failed read should leave the session signed out")
	}
}

func TestSignInAndOut(t *testing.T) {
	store := newMockStore()
	s := New(store)
	ctx := context.Background()

	s.SignIn(ctx, "tok-2")
	if token, ok := s.Token(); !ok || token != "tok-2" {
		t.Errorf("Token() = (%q, %v) after SignIn", token, ok)
	}
	if store.data[TokenKey] != "tok-2" {
		t.Errorf("persisted = %q, want tok-2", store.data[TokenKey])
	}

	s.SignOut(ctx)
	if _, ok := s.Token(); ok {
		t.Error("still signed in after SignOut")
	}
	if _, ok := store.data[TokenKey]; ok {
		t.Error("token still persisted after SignOut")
	}
}

func TestSignInSurvivesStoreFailure(t *testing.T) {
	store := newMockStore()
	store.setErr = errors.New("read-only")
	store.delErr = errors.New("read-only")
	s := New(store)
	ctx := context.Background()

	s.SignIn(ctx, "tok-3")
	if token, ok := s.Token(); !ok || token != "tok-3" {
		t.Errorf("Token() = (%q, %v), in-memory state must update", token, ok)
	}

	s.SignOut(ctx)
	if _, ok := s.Token(); ok {
		t.Error("SignOut must clear memory even when the store fails")
	}
}

func TestSubscribe(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	type event struct {
		token    string
		signedIn bool
	}
	var events []event
	s.Subscribe(func(token string, signedIn bool) {
		events = append(events, event{token, signedIn})
	})

	s.SignIn(ctx, "tok-4")
	s.SignOut(ctx)

	want := []event{{"tok-4", true}, {"", false}}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestListenerSeesUpdatedToken(t *testing.T) {
	s := New(nil)
	var seen string
	s.Subscribe(func(string, bool) {
		seen, _ = s.Token()
	})

	s.SignIn(context.Background(), "tok-5")
	if seen != "tok-5" {
		t.Errorf("listener read %q, want tok-5", seen)
	}
}
