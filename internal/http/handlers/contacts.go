package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kbsnetwork/server/internal/middleware"
	"github.com/kbsnetwork/server/internal/repo"
	"github.com/kbsnetwork/server/internal/validate"
)

const msgDuplicatePhone = "Ce numéro est déjà enregistré dans notre système"

// ContactsHandler handles the public registration endpoints
type ContactsHandler struct {
	contacts        repo.ContactRepo
	registerLimiter *middleware.RateLimiter
}

// NewContactsHandler creates a new contacts handler
func NewContactsHandler(contacts repo.ContactRepo) *ContactsHandler {
	// IP rate limit on registration: 20 per 10min; generous for humans,
	// enough to blunt scripted floods
	return &ContactsHandler{
		contacts:        contacts,
		registerLimiter: middleware.NewRateLimiter(10*60*time.Second, 20),
	}
}

// registerRequest is the request body for POST /api/contacts
type registerRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode"`
	Email       string `json:"email"`
}

// HandleLatest handles GET /api/contacts/latest (homepage display).
func (h *ContactsHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.ListLatest(r.Context(), 5)
	if err != nil {
		log.Printf("Failed to fetch latest contacts: %v", err)
		// this endpoint historically used an "error" key, not "message"
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Erreur serveur"})
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// HandleRegister handles POST /api/contacts
func (h *ContactsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Données invalides")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.CountryCode = strings.TrimSpace(req.CountryCode)
	req.Email = strings.TrimSpace(req.Email)

	if err := validate.ContactInput(req.Name, req.Phone, req.CountryCode, req.Email); err != nil {
		respondValidation(w, err.(validate.FieldErrors))
		return
	}

	ipKey := middleware.GetIPKey(r)
	if !h.registerLimiter.Allow(ipKey) {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	// Pre-check for a friendlier duplicate message. The unique constraint
	// on contacts.phone is the actual guard against a concurrent double
	// registration.
	if _, err := h.contacts.GetByPhone(r.Context(), req.Phone); err == nil {
		respondWithMessage(w, http.StatusBadRequest, msgDuplicatePhone)
		return
	} else if !errors.Is(err, repo.ErrNotFound) {
		log.Printf("Duplicate pre-check failed: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	var email *string
	if req.Email != "" {
		email = &req.Email
	}

	contact, err := h.contacts.Create(r.Context(), req.Name, req.Phone, req.CountryCode, email)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicatePhone) {
			respondWithMessage(w, http.StatusBadRequest, msgDuplicatePhone)
			return
		}
		log.Printf("Failed to register contact: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Inscription réussie",
		"contact": contact,
	})
}
