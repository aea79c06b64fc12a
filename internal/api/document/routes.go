package document

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the per-user document store routes on the /api router
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/users/{userId}/docs", func(r chi.Router) {
		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)

		r.Route("/{docId}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Put("/", h.UpdateDocument)
		})
	})
}
