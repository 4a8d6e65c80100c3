package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kbsnetwork/server/internal/export"
	"github.com/kbsnetwork/server/internal/model"
	"github.com/kbsnetwork/server/internal/repo"
	"github.com/kbsnetwork/server/internal/validate"
)

// AdminHandler handles the session-gated contact management endpoints
type AdminHandler struct {
	contacts repo.ContactRepo
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(contacts repo.ContactRepo) *AdminHandler {
	return &AdminHandler{contacts: contacts}
}

// HandleListContacts handles GET /api/admin/contacts.
// A non-empty `search` parameter wins over `filter`; the filter string is
// resolved to a ContactFilter before any query runs.
func (h *AdminHandler) HandleListContacts(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	var contacts []model.Contact
	var err error
	if search != "" {
		contacts, err = h.contacts.Search(r.Context(), search)
	} else {
		filter := repo.ParseContactFilter(r.URL.Query().Get("filter"))
		contacts, err = h.contacts.ListByFilter(r.Context(), filter)
	}
	if err != nil {
		log.Printf("Failed to list contacts: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// statsResponse matches GET /api/admin/stats
type statsResponse struct {
	TotalContacts  int             `json:"totalContacts"`
	TodayContacts  int             `json:"todayContacts"`
	WeekContacts   int             `json:"weekContacts"`
	WithEmail      int             `json:"withEmail"`
	LatestContacts []model.Contact `json:"latestContacts"`
}

// HandleStats handles GET /api/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.contacts.Count(ctx)
	if err != nil {
		log.Printf("Failed to count contacts: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	today, err := h.contacts.ListToday(ctx)
	if err != nil {
		log.Printf("Failed to list today's contacts: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	week, err := h.contacts.ListThisWeek(ctx)
	if err != nil {
		log.Printf("Failed to list week contacts: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	withEmail, err := h.contacts.ListWithEmail(ctx)
	if err != nil {
		log.Printf("Failed to list contacts with email: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	latest, err := h.contacts.ListLatest(ctx, 5)
	if err != nil {
		log.Printf("Failed to list latest contacts: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		TotalContacts:  total,
		TodayContacts:  len(today),
		WeekContacts:   len(week),
		WithEmail:      len(withEmail),
		LatestContacts: latest,
	})
}

// updateContactRequest is the request body for PUT /api/admin/contacts/{id}.
// Absent fields stay untouched.
type updateContactRequest struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	CountryCode *string `json:"countryCode"`
	Email       *string `json:"email"`
}

// HandleUpdateContact handles PUT /api/admin/contacts/{id}
func (h *AdminHandler) HandleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Données invalides")
		return
	}

	if err := validate.ContactPatch(req.Name, req.Phone, req.CountryCode, req.Email); err != nil {
		respondValidation(w, err.(validate.FieldErrors))
		return
	}

	contact, err := h.contacts.Update(r.Context(), id, repo.ContactPatch{
		Name:        req.Name,
		Phone:       req.Phone,
		CountryCode: req.CountryCode,
		Email:       req.Email,
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithMessage(w, http.StatusNotFound, "Contact non trouvé")
			return
		}
		if errors.Is(err, repo.ErrDuplicatePhone) {
			respondWithMessage(w, http.StatusBadRequest, msgDuplicatePhone)
			return
		}
		log.Printf("Failed to update contact %s: %v", id, err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Contact mis à jour",
		"contact": contact,
	})
}

// HandleDeleteContact handles DELETE /api/admin/contacts/{id}
func (h *AdminHandler) HandleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	removed, err := h.contacts.Delete(r.Context(), id)
	if err != nil {
		log.Printf("Failed to delete contact %s: %v", id, err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	if !removed {
		respondWithMessage(w, http.StatusNotFound, "Contact non trouvé")
		return
	}

	respondWithMessage(w, http.StatusOK, "Contact supprimé")
}

// HandleDeleteAllContacts handles DELETE /api/admin/contacts
func (h *AdminHandler) HandleDeleteAllContacts(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.DeleteAll(r.Context()); err != nil {
		log.Printf("Failed to delete all contacts: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}
	respondWithMessage(w, http.StatusOK, "Tous les contacts ont été supprimés")
}

// HandleExportVCF handles GET /api/admin/export/vcf
func (h *AdminHandler) HandleExportVCF(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.ListAll(r.Context())
	if err != nil {
		log.Printf("Failed to export VCF: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="kerventz-contacts.vcf"`)
	_, _ = w.Write([]byte(export.VCF(contacts)))
}

// HandleExportCSV handles GET /api/admin/export/csv
func (h *AdminHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.ListAll(r.Context())
	if err != nil {
		log.Printf("Failed to export CSV: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="kerventz-contacts.csv"`)
	_, _ = w.Write([]byte(export.CSV(contacts)))
}
