package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kbsnetwork/server/internal/model"
	"github.com/kbsnetwork/server/internal/repo"
)

const (
	// SessionTTL is the default session lifetime.
	SessionTTL = 24 * time.Hour
	// RememberMeTTL is the extended lifetime granted when the login
	// request sets rememberMe.
	RememberMeTTL = 30 * 24 * time.Hour
)

// ErrInvalidCredentials covers both an unknown username and a wrong
// password so a caller cannot tell which one occurred.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService orchestrates admin authentication and session lifecycle
type AuthService struct {
	adminRepo   repo.AdminRepo
	sessionRepo repo.SessionRepo
}

// NewAuthService creates a new auth service
func NewAuthService(adminRepo repo.AdminRepo, sessionRepo repo.SessionRepo) *AuthService {
	return &AuthService{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
	}
}

// Login verifies the credentials, stamps last_login and opens a session.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool) (model.Admin, model.Session, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Admin{}, model.Session{}, ErrInvalidCredentials
		}
		return model.Admin{}, model.Session{}, fmt.Errorf("look up admin: %w", err)
	}

	if !VerifyPassword(admin.PasswordHash, password) {
		return model.Admin{}, model.Session{}, ErrInvalidCredentials
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID.String()); err != nil {
		return model.Admin{}, model.Session{}, fmt.Errorf("update last login: %w", err)
	}

	ttl := SessionTTL
	if rememberMe {
		ttl = RememberMeTTL
	}
	session, err := s.sessionRepo.Create(ctx, admin.ID, time.Now().Add(ttl))
	if err != nil {
		return model.Admin{}, model.Session{}, fmt.Errorf("create session: %w", err)
	}

	return admin, session, nil
}

// Logout destroys the session.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if _, err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SweepExpiredSessions removes sessions past their expiry. The host process
// decides the cadence; the auth gate rejects stale rows regardless.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) error {
	return s.sessionRepo.DeleteExpired(ctx)
}

// EnsureDefaultAdmin creates the bootstrap admin account if no account with
// that username exists. Idempotent; safe to run on every startup. Two
// instances starting at once can race the create, which is benign: the
// username unique constraint stops the second insert.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	_, err := s.adminRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("look up default admin: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.adminRepo.Create(ctx, username, hash); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	log.Printf("Default admin account %q created", username)
	return nil
}
