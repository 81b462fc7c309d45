package service

import (
	"context"
	"log/slog"

	"github.com/baobabichh/diabetic-diary-app/internal/auth"
	"github.com/baobabichh/diabetic-diary-app/internal/session"
)

// AuthService runs the register, login and logout flows.
type AuthService struct {
	authenticator auth.Authenticator
	session       *session.Session
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, sess *session.Session, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		session:       sess,
		logger:        logger,
	}
}

// Register validates the form, creates the account and signs in.
// Validation failures are returned as auth.Errors without contacting the
// backend.
func (s *AuthService) Register(ctx context.Context, email, password, confirm string) error {
	if errs := auth.ValidateRegistration(email, password, confirm); errs != nil {
		return errs
	}

	token, err := s.authenticator.Register(ctx, email, password)
	if err != nil {
		s.logger.Error("Registration failed", "email", email, "error", err)
		return err
	}

	s.session.SignIn(ctx, token)
	s.logger.Info("User registered successfully", "email", email)
	return nil
}

// Login validates the credentials, exchanges them for a token and signs in.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	if errs := auth.ValidateLogin(email, password); errs != nil {
		return errs
	}

	token, err := s.authenticator.Login(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return err
	}

	s.session.SignIn(ctx, token)
	s.logger.Info("User logged in successfully", "email", email)
	return nil
}

// Logout ends the session. The backend keeps no session state to revoke.
func (s *AuthService) Logout(ctx context.Context) {
	s.session.SignOut(ctx)
	s.logger.Info("User logged out")
}
