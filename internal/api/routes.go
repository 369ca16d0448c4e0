package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)

		// Protected routes (session token required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.secret))

			r.Route("/lures", func(r chi.Router) {
				r.Get("/", h.ListLures)
				r.Post("/", h.CreateLure)
				r.Get("/{id}", h.GetLure)
				r.Patch("/{id}", h.PatchLure)
				r.Delete("/{id}", h.DeleteLure)
				r.Post("/{id}/catches", h.CreateCatch)
				r.Patch("/{id}/catches/{catchID}", h.PatchCatch)
				r.Delete("/{id}/catches/{catchID}", h.DeleteCatch)
			})

			r.Get("/catches/locations", h.ListCatchLocations)

			r.Get("/quota", h.GetQuota)
			r.Post("/quota/usage", h.IncrementQuota)
			r.Get("/subscription", h.GetSubscription)
			r.Put("/subscription", h.PutSubscription)
		})
	})

	return r
}
