package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kbsnetwork/server/internal/http/handlers"
	"github.com/kbsnetwork/server/internal/middleware"
	"github.com/kbsnetwork/server/internal/repo"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	contactsHandler *handlers.ContactsHandler,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	sessionRepo repo.SessionRepo,
	adminRepo repo.AdminRepo,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)

	// Public endpoints
	r.Route("/api/contacts", func(r chi.Router) {
		r.Get("/latest", contactsHandler.HandleLatest)
		r.Post("/", contactsHandler.HandleRegister)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)

		// Protected routes (require a valid session cookie)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(sessionRepo, adminRepo))

			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/profile", authHandler.HandleProfile)

			r.Get("/contacts", adminHandler.HandleListContacts)
			r.Put("/contacts/{id}", adminHandler.HandleUpdateContact)
			r.Delete("/contacts/{id}", adminHandler.HandleDeleteContact)
			r.Delete("/contacts", adminHandler.HandleDeleteAllContacts)

			r.Get("/stats", adminHandler.HandleStats)
			r.Get("/export/vcf", adminHandler.HandleExportVCF)
			r.Get("/export/csv", adminHandler.HandleExportCSV)
		})
	})

	return r
}
