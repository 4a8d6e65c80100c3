package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no row matches the given identifier.
	ErrNotFound = errors.New("not found")
	// ErrDuplicatePhone is returned when an insert or update collides with
	// the unique constraint on contacts.phone.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// uniqueViolation is the Postgres error code for unique_violation.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint error.
// The constraint is the authoritative duplicate guard; application-level
// pre-checks only exist for friendlier error messages.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
