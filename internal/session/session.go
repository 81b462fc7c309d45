// Package session holds the signed-in user's token for the lifetime of the
// process and mirrors it to a persistent store.
//
// The in-memory value is authoritative. Writes to the store happen after the
// in-memory update and their failures are logged, never returned, so a
// broken store cannot block sign-in or sign-out.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/baobabichh/diabetic-diary-app/internal/storage"
)

// TokenKey is the storage key of the persisted token.
const TokenKey = "userToken"

// Listener is notified after every sign-in or sign-out.
type Listener = func(token string, signedIn bool)

// Session is the single process-wide session. Construct it once and pass it
// to the components that need the token.
type Session struct {
	store storage.Store

	mu        sync.RWMutex
	token     string
	listeners []Listener
}

// New creates a signed-out session backed by store. store may be nil, in
// which case the session lives only in memory.
func New(store storage.Store) *Session {
	return &Session{store: store}
}

// Init loads the persisted token. It is meant to run once at startup.
// A storage error is logged and leaves the session signed out.
func (s *Session) Init(ctx context.Context) {
	if s.store == nil {
		return
	}
	token, ok, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		slog.Error("Failed to load session token", "error", err)
		return
	}
	if !ok || token == "" {
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify(token, true)
}

// SignIn makes token the current session and persists it.
func (s *Session) SignIn(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify(token, true)

	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		slog.Error("Failed to persist session token", "error", err)
	}
}

// SignOut clears the session and removes the persisted token.
func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.notify("", false)

	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, TokenKey); err != nil {
		slog.Error("Failed to remove session token", "error", err)
	}
}

// Token returns the current token and whether a user is signed in.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Subscribe registers l for session changes.
func (s *Session) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) notify(token string, signedIn bool) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(token, signedIn)
	}
}
