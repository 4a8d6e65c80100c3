package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/kbsnetwork/server/internal/model"
)

// AdminRepo defines the interface for admin repository operations
type AdminRepo interface {
	GetByID(ctx context.Context, id string) (model.Admin, error)
	GetByUsername(ctx context.Context, username string) (model.Admin, error)
	Create(ctx context.Context, username, passwordHash string) (model.Admin, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

type adminRepo struct {
	db *sql.DB
}

// NewAdminRepo creates a new AdminRepo instance
func NewAdminRepo(db *sql.DB) AdminRepo {
	return &adminRepo{db: db}
}

const adminColumns = "id, username, password, last_login, created_at"

func scanAdmin(s interface{ Scan(...interface{}) error }) (model.Admin, error) {
	var a model.Admin
	var idStr string
	var lastLogin sql.NullTime
	if err := s.Scan(&idStr, &a.Username, &a.PasswordHash, &lastLogin, &a.CreatedAt); err != nil {
		return model.Admin{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Admin{}, fmt.Errorf("parse admin ID: %w", err)
	}
	a.ID = id
	if lastLogin.Valid {
		a.LastLogin = &lastLogin.Time
	}
	return a, nil
}

// GetByID retrieves an admin by ID
func (r *adminRepo) GetByID(ctx context.Context, id string) (model.Admin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+adminColumns+`
		FROM admins
		WHERE id = $1
	`, id)
	a, err := scanAdmin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Admin{}, ErrNotFound
		}
		return model.Admin{}, fmt.Errorf("query admin: %w", err)
	}
	return a, nil
}

// GetByUsername retrieves an admin by username
func (r *adminRepo) GetByUsername(ctx context.Context, username string) (model.Admin, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+adminColumns+`
		FROM admins
		WHERE username = $1
	`, username)
	a, err := scanAdmin(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Admin{}, ErrNotFound
		}
		return model.Admin{}, fmt.Errorf("query admin by username: %w", err)
	}
	return a, nil
}

// Create inserts a new admin with an already-hashed password.
func (r *adminRepo) Create(ctx context.Context, username, passwordHash string) (model.Admin, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO admins (username, password)
		VALUES ($1, $2)
		RETURNING `+adminColumns+`
	`, username, passwordHash)
	a, err := scanAdmin(row)
	if err != nil {
		return model.Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	return a, nil
}

// UpdateLastLogin stamps the admin's last successful login time.
func (r *adminRepo) UpdateLastLogin(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE admins SET last_login = now() WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
