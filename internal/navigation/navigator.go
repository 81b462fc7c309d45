// Package navigation decides which screens are reachable. Signed-out users
// are confined to the auth flow (login, register); signed-in users get the
// main flow (recognition, history, profile tabs, plus record detail).
package navigation

import (
	"errors"
	"fmt"
	"sync"
)

// Screen names a navigable screen.
type Screen string

const (
	Login       Screen = "Login"
	Register    Screen = "Register"
	Recognition Screen = "Recognition"
	History     Screen = "History"
	Profile     Screen = "Profile"
)

var (
	ErrWrongFlow    = errors.New("screen is not part of the current flow")
	ErrNotSignedIn  = errors.New("not logged in")
	ErrNoRecordHost = errors.New("record detail opens from history or recognition")
)

// State is either AuthFlow or MainFlow.
type State interface {
	isState()
}

// AuthFlow is the signed-out state.
type AuthFlow struct {
	Screen Screen
}

// MainFlow is the signed-in state.
type MainFlow struct {
	Tab Screen
	// RecordID is set while a record detail is shown on top of Tab.
	RecordID string
}

func (AuthFlow) isState() {}
func (MainFlow) isState() {}

func isAuthScreen(s Screen) bool { return s == Login || s == Register }

func isTab(s Screen) bool { return s == Recognition || s == History || s == Profile }

// SessionSource is the part of session.Session the navigator watches.
type SessionSource interface {
	Token() (string, bool)
	Subscribe(func(token string, signedIn bool))
}

// Navigator tracks the current screen and follows session changes.
type Navigator struct {
	mu    sync.RWMutex
	state State
}

// New starts in the flow matching the session and switches flows whenever
// the user signs in or out.
func New(sess SessionSource) *Navigator {
	n := &Navigator{}
	_, signedIn := sess.Token()
	n.state = initialState(signedIn)
	sess.Subscribe(n.onSession)
	return n
}

func initialState(signedIn bool) State {
	if signedIn {
		return MainFlow{Tab: Recognition}
	}
	return AuthFlow{Screen: Login}
}

func (n *Navigator) onSession(_ string, signedIn bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, inMain := n.state.(MainFlow); inMain == signedIn {
		return
	}
	n.state = initialState(signedIn)
}

// State returns the current state.
func (n *Navigator) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// SignedIn reports whether the main flow is active.
func (n *Navigator) SignedIn() bool {
	_, ok := n.State().(MainFlow)
	return ok
}

// RequireMain returns ErrNotSignedIn unless the main flow is active.
func (n *Navigator) RequireMain() error {
	if !n.SignedIn() {
		return ErrNotSignedIn
	}
	return nil
}

// Navigate moves to screen within the current flow. Switching tabs closes
// any open record detail.
func (n *Navigator) Navigate(screen Screen) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state.(type) {
	case AuthFlow:
		if !isAuthScreen(screen) {
			return fmt.Errorf("%s: %w", screen, ErrWrongFlow)
		}
		n.state = AuthFlow{Screen: screen}
	case MainFlow:
		if !isTab(screen) {
			return fmt.Errorf("%s: %w", screen, ErrWrongFlow)
		}
		n.state = MainFlow{Tab: screen}
	}
	return nil
}

// OpenRecord shows the detail of a record on top of the History or
// Recognition tab.
func (n *Navigator) OpenRecord(recordID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	main, ok := n.state.(MainFlow)
	if !ok {
		return ErrNotSignedIn
	}
	if main.Tab != History && main.Tab != Recognition {
		return ErrNoRecordHost
	}
	main.RecordID = recordID
	n.state = main
	return nil
}

// CloseRecord returns to the tab under the record detail.
func (n *Navigator) CloseRecord() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if main, ok := n.state.(MainFlow); ok {
		main.RecordID = ""
		n.state = main
	}
}
