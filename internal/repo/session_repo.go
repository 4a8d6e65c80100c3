package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kbsnetwork/server/internal/model"
)

// SessionRepo defines the interface for session repository operations
type SessionRepo interface {
	Create(ctx context.Context, adminID uuid.UUID, expiresAt time.Time) (model.Session, error)
	GetByID(ctx context.Context, id string) (model.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteExpired(ctx context.Context) error
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// Create inserts a new session with a random token as its id.
func (r *sessionRepo) Create(ctx context.Context, adminID uuid.UUID, expiresAt time.Time) (model.Session, error) {
	var s model.Session
	var adminIDStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, admin_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, admin_id, expires_at, created_at
	`, uuid.NewString(), adminID.String(), expiresAt).Scan(&s.ID, &adminIDStr, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	s.AdminID, err = uuid.Parse(adminIDStr)
	if err != nil {
		return model.Session{}, fmt.Errorf("parse session admin ID: %w", err)
	}
	return s, nil
}

// GetByID returns the session row whether or not it has expired; the auth
// gate makes the expiry decision so a stale row is rejected even before the
// sweep removes it.
func (r *sessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	var s model.Session
	var adminIDStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, admin_id, expires_at, created_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &adminIDStr, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("query session: %w", err)
	}
	s.AdminID, err = uuid.Parse(adminIDStr)
	if err != nil {
		return model.Session{}, fmt.Errorf("parse session admin ID: %w", err)
	}
	return s, nil
}

// Delete removes a session; returns false if no row matched.
func (r *sessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired removes every session whose expiry has passed.
func (r *sessionRepo) DeleteExpired(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= now()`); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
