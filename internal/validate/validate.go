// Package validate holds the pure input validators for the API surface.
// Validators return a FieldErrors map naming every violated field; the
// messages are the exact French strings the web client displays.
package validate

import (
	"net/mail"
	"strings"
)

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

// Error implements the error interface.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// OrNil returns the map as an error, or nil when no field failed.
func (e FieldErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

const (
	msgNameRequired        = "Le nom est requis"
	msgPhoneRequired       = "Le numéro est requis"
	msgCountryCodeRequired = "L'indicatif est requis"
	msgEmailInvalid        = "Format email invalide"
	msgUsernameRequired    = "Nom d'utilisateur requis"
	msgPasswordRequired    = "Mot de passe requis"
)

// EmailValid reports whether s is a syntactically valid bare address.
func EmailValid(s string) bool {
	addr, err := mail.ParseAddress(s)
	// Reject display-name forms like "Jean <jean@example.com>"; the
	// field must hold the address alone.
	return err == nil && addr.Address == s
}

// ContactInput validates a full registration payload. The empty string is
// treated as an absent email.
func ContactInput(name, phone, countryCode, email string) error {
	errs := FieldErrors{}
	if strings.TrimSpace(name) == "" {
		errs["name"] = msgNameRequired
	}
	if strings.TrimSpace(phone) == "" {
		errs["phone"] = msgPhoneRequired
	}
	if strings.TrimSpace(countryCode) == "" {
		errs["countryCode"] = msgCountryCodeRequired
	}
	if email != "" && !EmailValid(email) {
		errs["email"] = msgEmailInvalid
	}
	return errs.OrNil()
}

// ContactPatch validates a partial update: any subset of the four editable
// fields may be present (non-nil), and each present field must satisfy the
// same rule as at registration.
func ContactPatch(name, phone, countryCode, email *string) error {
	errs := FieldErrors{}
	if name != nil && strings.TrimSpace(*name) == "" {
		errs["name"] = msgNameRequired
	}
	if phone != nil && strings.TrimSpace(*phone) == "" {
		errs["phone"] = msgPhoneRequired
	}
	if countryCode != nil && strings.TrimSpace(*countryCode) == "" {
		errs["countryCode"] = msgCountryCodeRequired
	}
	if email != nil && *email != "" && !EmailValid(*email) {
		errs["email"] = msgEmailInvalid
	}
	return errs.OrNil()
}

// Login validates a login payload.
func Login(username, password string) error {
	errs := FieldErrors{}
	if strings.TrimSpace(username) == "" {
		errs["username"] = msgUsernameRequired
	}
	if password == "" {
		errs["password"] = msgPasswordRequired
	}
	return errs.OrNil()
}
