package model

import (
	"time"

	"github.com/google/uuid"
)

// NameSuffix is appended to every contact name at registration time
// unless the submitted name already ends with it.
const NameSuffix = " K.B.S🚀🔥"

// DefaultCountryCode is used when a registration omits the country code.
const DefaultCountryCode = "+509"

// Contact represents a registered network member.
// JSON keys are camelCase because the web client was built against them.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	CountryCode string    `json:"countryCode"`
	Email       *string   `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasEmail reports whether the contact carries a non-empty email address.
func (c Contact) HasEmail() bool {
	return c.Email != nil && *c.Email != ""
}

// Admin represents the operator account allowed to manage contacts.
type Admin struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"lastLogin"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Session is a server-side record authorizing an admin's requests
// until ExpiresAt. The ID doubles as the cookie value.
type Session struct {
	ID        string
	AdminID   uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
