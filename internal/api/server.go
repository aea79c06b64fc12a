package api

import (
	"net/http"
	"time"

	"github.com/futig/report-writer/internal/api/docs"
	documentapi "github.com/futig/report-writer/internal/api/document"
	knowledgeapi "github.com/futig/report-writer/internal/api/knowledge"
	"github.com/futig/report-writer/internal/api/middleware"
	reportapi "github.com/futig/report-writer/internal/api/report"
	"github.com/futig/report-writer/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Report    *reportapi.Handler
	Knowledge *knowledgeapi.Handler
	Document  *documentapi.Handler
}

// SetupRouter creates and configures the HTTP router. requestTimeout bounds
// every route except the body streams.
func SetupRouter(h Handlers, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)   // Recover from panics
	r.Use(chimiddleware.RequestID)   // Add request ID
	r.Use(middleware.Logger(logger)) // Log requests
	r.Use(middleware.CORS)           // Handle CORS
	r.Use(middleware.Metrics)        // Per-route counters

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	r.Route("/api", func(r chi.Router) {
		reportapi.RegisterRoutes(r, h.Report, requestTimeout)
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))
			knowledgeapi.RegisterRoutes(r, h.Knowledge)
			documentapi.RegisterRoutes(r, h.Document)
		})
	})

	return r
}
