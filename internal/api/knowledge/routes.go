package knowledge

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers knowledge base routes on the /api router
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/knowledge-datasets", h.ListDatasets)
	r.Get("/knowledge-retrieve-test", h.TestRetrieval)
	r.Post("/knowledge-retrieve-test", h.TestRetrieval)
}
