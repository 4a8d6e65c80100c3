package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kbsnetwork/server/internal/model"
)

// ContactPatch carries a partial contact update; nil fields are untouched.
type ContactPatch struct {
	Name        *string
	Phone       *string
	CountryCode *string
	Email       *string
}

// ContactFilter selects which admin listing query runs.
type ContactFilter int

const (
	FilterAll ContactFilter = iota
	FilterWithEmail
	FilterToday
	FilterWeek
)

// ParseContactFilter maps the `filter` query parameter onto a ContactFilter.
// Unknown or empty values fall back to FilterAll, as the original client
// only ever sends the three named values.
func ParseContactFilter(s string) ContactFilter {
	switch s {
	case "with-email":
		return FilterWithEmail
	case "today":
		return FilterToday
	case "week":
		return FilterWeek
	default:
		return FilterAll
	}
}

// ContactRepo defines the interface for contact repository operations.
// Every list operation returns rows ordered newest-first by creation time;
// the client relies on that ordering.
type ContactRepo interface {
	GetByID(ctx context.Context, id string) (model.Contact, error)
	GetByPhone(ctx context.Context, phone string) (model.Contact, error)
	Create(ctx context.Context, name, phone, countryCode string, email *string) (model.Contact, error)
	Update(ctx context.Context, id string, patch ContactPatch) (model.Contact, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) error
	ListAll(ctx context.Context) ([]model.Contact, error)
	Search(ctx context.Context, query string) ([]model.Contact, error)
	ListWithEmail(ctx context.Context) ([]model.Contact, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Contact, error)
	ListToday(ctx context.Context) ([]model.Contact, error)
	ListThisWeek(ctx context.Context) ([]model.Contact, error)
	Count(ctx context.Context) (int, error)
	ListLatest(ctx context.Context, limit int) ([]model.Contact, error)
	ListByFilter(ctx context.Context, filter ContactFilter) ([]model.Contact, error)
}

type contactRepo struct {
	db *sql.DB
}

// NewContactRepo creates a new ContactRepo instance
func NewContactRepo(db *sql.DB) ContactRepo {
	return &contactRepo{db: db}
}

const contactColumns = "id, name, phone, country_code, email, created_at, updated_at"

// scanContact scans one contact row from a *sql.Row or *sql.Rows.
func scanContact(s interface{ Scan(...interface{}) error }) (model.Contact, error) {
	var c model.Contact
	var idStr string
	var email sql.NullString
	if err := s.Scan(&idStr, &c.Name, &c.Phone, &c.CountryCode, &email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return model.Contact{}, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return model.Contact{}, fmt.Errorf("parse contact ID: %w", err)
	}
	c.ID = id
	if email.Valid {
		c.Email = &email.String
	}
	return c, nil
}

func (r *contactRepo) queryContacts(ctx context.Context, query string, args ...interface{}) ([]model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]model.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// GetByID retrieves a contact by ID
func (r *contactRepo) GetByID(ctx context.Context, id string) (model.Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE id = $1
	`, id)
	c, err := scanContact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Contact{}, ErrNotFound
		}
		return model.Contact{}, fmt.Errorf("query contact: %w", err)
	}
	return c, nil
}

// GetByPhone retrieves a contact by phone number; used for duplicate detection.
func (r *contactRepo) GetByPhone(ctx context.Context, phone string) (model.Contact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE phone = $1
	`, phone)
	c, err := scanContact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Contact{}, ErrNotFound
		}
		return model.Contact{}, fmt.Errorf("query contact by phone: %w", err)
	}
	return c, nil
}

// NormalizeName appends the promotional suffix unless the name already ends
// with it, so re-registering a suffixed name never doubles it.
func NormalizeName(name string) string {
	if strings.HasSuffix(name, model.NameSuffix) {
		return name
	}
	return name + model.NameSuffix
}

// Create inserts a contact with a suffix-normalized name. A collision on the
// phone unique constraint is reported as ErrDuplicatePhone.
func (r *contactRepo) Create(ctx context.Context, name, phone, countryCode string, email *string) (model.Contact, error) {
	if countryCode == "" {
		countryCode = model.DefaultCountryCode
	}
	var emailVal sql.NullString
	if email != nil && *email != "" {
		emailVal = sql.NullString{String: *email, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (name, phone, country_code, email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+contactColumns+`
	`, NormalizeName(name), phone, countryCode, emailVal)
	c, err := scanContact(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Contact{}, ErrDuplicatePhone
		}
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// Update merges the patch into the stored row and refreshes updated_at.
// Returns ErrNotFound if the id is unknown and ErrDuplicatePhone if a phone
// change collides with an existing contact.
func (r *contactRepo) Update(ctx context.Context, id string, patch ContactPatch) (model.Contact, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{id}
	arg := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, arg))
		args = append(args, value)
		arg++
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.CountryCode != nil {
		add("country_code", *patch.CountryCode)
	}
	if patch.Email != nil {
		if *patch.Email == "" {
			add("email", sql.NullString{})
		} else {
			add("email", sql.NullString{String: *patch.Email, Valid: true})
		}
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE contacts
		SET `+strings.Join(sets, ", ")+`
		WHERE id = $1
		RETURNING `+contactColumns+`
	`, args...)
	c, err := scanContact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Contact{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return model.Contact{}, ErrDuplicatePhone
		}
		return model.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// Delete removes a contact; returns false if no row matched.
func (r *contactRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete contact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete contact rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteAll removes every contact row.
func (r *contactRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
		return fmt.Errorf("delete all contacts: %w", err)
	}
	return nil
}

// ListAll returns all contacts, newest-first.
func (r *contactRepo) ListAll(ctx context.Context) ([]model.Contact, error) {
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		ORDER BY created_at DESC
	`)
}

// Search returns contacts whose name or phone contains the query,
// case-insensitively, newest-first.
func (r *contactRepo) Search(ctx context.Context, query string) ([]model.Contact, error) {
	pattern := "%" + query + "%"
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE name ILIKE $1 OR phone ILIKE $1
		ORDER BY created_at DESC
	`, pattern)
}

// ListWithEmail returns contacts carrying a non-empty email, newest-first.
func (r *contactRepo) ListWithEmail(ctx context.Context) ([]model.Contact, error) {
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE email IS NOT NULL AND email != ''
		ORDER BY created_at DESC
	`)
}

// ListByDateRange returns contacts created within [start, end], newest-first.
func (r *contactRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Contact, error) {
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
	`, start, end)
}

// ListToday returns contacts created since local midnight.
func (r *contactRepo) ListToday(ctx context.Context) ([]model.Contact, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return r.ListByDateRange(ctx, midnight, midnight.AddDate(0, 0, 1))
}

// ListThisWeek returns contacts created in the last seven days.
func (r *contactRepo) ListThisWeek(ctx context.Context) ([]model.Contact, error) {
	now := time.Now()
	return r.ListByDateRange(ctx, now.AddDate(0, 0, -7), now)
}

// Count returns the total number of contact rows.
func (r *contactRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// ListLatest returns the limit most recent contacts, newest-first.
// A non-positive limit falls back to 5, the homepage display size.
func (r *contactRepo) ListLatest(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit <= 0 {
		limit = 5
	}
	return r.queryContacts(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

// ListByFilter dispatches on the resolved filter kind.
func (r *contactRepo) ListByFilter(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	switch filter {
	case FilterWithEmail:
		return r.ListWithEmail(ctx)
	case FilterToday:
		return r.ListToday(ctx)
	case FilterWeek:
		return r.ListThisWeek(ctx)
	default:
		return r.ListAll(ctx)
	}
}
