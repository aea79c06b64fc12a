package report

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers report routes on the /api router. The body
// streams carry their own deadlines; every other route gets requestTimeout.
func RegisterRoutes(r chi.Router, h *Handler, requestTimeout time.Duration) {
	r.Post("/body", h.GenerateBody)
	r.Post("/body-section", h.GenerateSection)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Post("/outline", h.GenerateOutline)
		r.Post("/polish", h.Polish)
		r.Post("/extract-reference", h.ExtractReference)
		r.Post("/export", h.Export)
		r.Post("/export-docx", h.ExportDOCX)
	})
}
