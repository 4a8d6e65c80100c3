package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/kbsnetwork/server/internal/model"
	"github.com/kbsnetwork/server/internal/repo"
)

type contextKey string

const (
	adminKey   contextKey = "admin"
	sessionKey contextKey = "session"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "kbs_session"

// AuthMiddleware validates the session cookie, loads the owning admin from
// the DB, and attaches both to the request context. A session past its
// expiry is rejected here even if the sweep has not removed the row yet.
func AuthMiddleware(sessionRepo repo.SessionRepo, adminRepo repo.AdminRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				respondWithMessage(w, http.StatusUnauthorized, "Non autorisé")
				return
			}

			session, err := sessionRepo.GetByID(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, repo.ErrNotFound) {
					log.Printf("Session lookup failed: %v", err)
				}
				respondWithMessage(w, http.StatusUnauthorized, "Non autorisé")
				return
			}

			if session.Expired(time.Now()) {
				respondWithMessage(w, http.StatusUnauthorized, "Non autorisé")
				return
			}

			admin, err := adminRepo.GetByID(r.Context(), session.AdminID.String())
			if err != nil {
				if !errors.Is(err, repo.ErrNotFound) {
					log.Printf("Admin lookup failed: %v", err)
				}
				respondWithMessage(w, http.StatusUnauthorized, "Session invalide")
				return
			}

			ctx := context.WithValue(r.Context(), adminKey, &admin)
			ctx = context.WithValue(ctx, sessionKey, &session)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdmin returns the admin attached to the request context (set by AuthMiddleware)
func GetAdmin(ctx context.Context) (*model.Admin, bool) {
	a, ok := ctx.Value(adminKey).(*model.Admin)
	return a, ok
}

// GetSession returns the session attached to the request context
func GetSession(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok
}

// respondWithMessage sends the JSON error body the web client expects.
func respondWithMessage(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"message": message}
	_ = json.NewEncoder(w).Encode(response)
}
