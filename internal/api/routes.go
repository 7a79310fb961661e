package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/tenantnotes/notes-server/internal/models"
)

// setupAPIRoutes sets up API routes.
//
// Every tenant-scoped route runs authenticate, resolveTenant and bindTenant
// before any handler touches the store.
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.With(s.authenticate).Get("/me", s.HandleGetCurrentUser)
	})

	// Notes
	r.Route("/notes", func(r chi.Router) {
		r.Use(s.authenticate, s.resolveTenant, s.bindTenant)
		r.Use(s.requireRole(models.RoleMember, models.RoleAdmin))
		r.Get("/", s.HandleListNotes)
		r.Post("/", s.HandleCreateNote)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.HandleGetNote)
			r.Put("/", s.HandleUpdateNote)
			r.Delete("/", s.HandleDeleteNote)
		})
	})

	// Tenants
	r.Route("/tenants/{slug}", func(r chi.Router) {
		r.Use(s.authenticate, s.resolveTenant, s.bindTenant)
		r.Get("/", s.HandleGetTenant)
		r.With(s.requireRole(models.RoleAdmin)).Post("/upgrade", s.HandleUpgradeTenant)
	})
}
