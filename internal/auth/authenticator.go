// Package auth holds the credential rules shared by the register and login
// flows: input validation, the Authenticator port the backend client
// implements, and the password hashing used by the development backend.
package auth

import "context"

// Authenticator exchanges credentials for an opaque session token.
// The backend client implements it; tests substitute a fake.
type Authenticator interface {
	// Register creates an account and returns its session token.
	Register(ctx context.Context, email, password string) (string, error)

	// Login verifies the credentials and returns a session token.
	Login(ctx context.Context, email, password string) (string, error)
}
