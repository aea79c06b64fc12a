package knowledge

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/futig/report-writer/internal/pkg/logger"
	"github.com/futig/report-writer/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxQueryBody = 64 << 10

type Handler struct {
	usecase KnowledgeUsecase
}

func NewHandler(usecase KnowledgeUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// ListDatasets handles GET /api/knowledge-datasets
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListDatasets")

	listing := h.usecase.ListDatasets(ctx)
	ctxzap.Debug(ctx, "datasets listed",
		zap.Int("count", len(listing.Options)),
		zap.Bool("api_key_configured", listing.ConfigStatus.APIKeyConfigured),
	)
	response.Success(w, listing)
}

type testRequest struct {
	Query string `json:"query"`
}

// TestRetrieval handles GET and POST /api/knowledge-retrieve-test. It always
// answers 200; failures are reported inside the body.
func (h *Handler) TestRetrieval(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "TestRetrieval")

	query := r.URL.Query().Get("query")
	if r.Method == http.MethodPost {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
		if err != nil {
			ctxzap.Warn(ctx, "failed to read body", zap.Error(err))
		}
		var body testRequest
		if len(raw) > 0 && json.Unmarshal(raw, &body) == nil && body.Query != "" {
			query = body.Query
		}
	}

	res := h.usecase.TestRetrieval(ctx, query)
	ctxzap.Info(ctx, "retrieval test finished",
		zap.Bool("success", res.Success),
		zap.String("status", res.Status),
		zap.Int("records", res.RecordCount),
	)
	response.Success(w, res)
}
