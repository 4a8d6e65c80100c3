package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kbsnetwork/server/internal/auth"
	"github.com/kbsnetwork/server/internal/middleware"
	"github.com/kbsnetwork/server/internal/validate"
)

// AuthHandler handles admin authentication endpoints
type AuthHandler struct {
	authService   *auth.AuthService
	secureCookies bool
	loginLimiter  *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler. secureCookies should be true in
// production so the session cookie is only sent over HTTPS.
func NewAuthHandler(authService *auth.AuthService, secureCookies bool) *AuthHandler {
	// IP rate limit on login: 10 per 10min, a brute-force brake
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
		loginLimiter:  middleware.NewRateLimiter(10*60*time.Second, 10),
	}
}

// loginRequest is the request body for POST /api/admin/login
type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// adminResponse is the admin summary in API responses
type adminResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// HandleLogin handles POST /api/admin/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Données invalides")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	if err := validate.Login(req.Username, req.Password); err != nil {
		respondValidation(w, err.(validate.FieldErrors))
		return
	}

	ipKey := middleware.GetIPKey(r)
	if !h.loginLimiter.Allow(ipKey) {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
		return
	}

	admin, session, err := h.authService.Login(r.Context(), req.Username, req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			// same message for unknown username and wrong password
			respondWithMessage(w, http.StatusUnauthorized, "Identifiants invalides")
			return
		}
		log.Printf("Login failed: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	ttl := auth.SessionTTL
	if req.RememberMe {
		ttl = auth.RememberMeTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Connexion réussie",
		"admin": adminResponse{
			ID:       admin.ID.String(),
			Username: admin.Username,
		},
	})
}

// HandleLogout handles POST /api/admin/logout (session-gated).
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok || session == nil {
		respondWithMessage(w, http.StatusUnauthorized, "Non autorisé")
		return
	}

	if err := h.authService.Logout(r.Context(), session.ID); err != nil {
		log.Printf("Logout failed: %v", err)
		respondWithMessage(w, http.StatusInternalServerError, "Erreur lors de la déconnexion")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondWithMessage(w, http.StatusOK, "Déconnexion réussie")
}

// HandleProfile handles GET /api/admin/profile (session-gated).
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.GetAdmin(r.Context())
	if !ok || admin == nil {
		respondWithMessage(w, http.StatusUnauthorized, "Non autorisé")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":        admin.ID.String(),
		"username":  admin.Username,
		"lastLogin": admin.LastLogin,
	})
}
