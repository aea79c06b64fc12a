package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	documentapi "github.com/futig/report-writer/internal/api/document"
	knowledgeapi "github.com/futig/report-writer/internal/api/knowledge"
	reportapi "github.com/futig/report-writer/internal/api/report"
	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/integration/knowledge"
	"github.com/futig/report-writer/internal/integration/llm"
	"github.com/futig/report-writer/internal/pkg/extract"
	"github.com/futig/report-writer/internal/pkg/formatter"
	pkgRetry "github.com/futig/report-writer/internal/pkg/retry"
	"github.com/futig/report-writer/internal/pkg/validator"
	"github.com/futig/report-writer/internal/repository"
	"github.com/futig/report-writer/internal/usecase/document"
	"github.com/futig/report-writer/internal/usecase/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	log := zap.NewNop()
	gen := config.GenerationConfig{
		MinTokens:           256,
		TokenMultiplier:     1.5,
		MaxSectionTokens:    4096,
		MaxFullTokens:       4096,
		MinWordCount:        20,
		DefaultWordCount:    1000,
		DefaultSectionWords: 300,
		WordCountDiscipline: config.DisciplineCeiling,
		OutlineTimeout:      time.Second,
		TransformTimeout:    time.Second,
		FullTimeout:         2 * time.Second,
		SectionTimeout:      time.Second,
		RetrievalTimeout:    time.Second,
	}
	upload := config.FileUploadConfig{MaxFileSize: 1 << 20, MaxFileCount: 5, MaxUploadSize: 4 << 20, MaxReferenceChars: 8000}
	v := validator.New(gen)

	reportUC := report.NewUsecase(llm.NewMockConnector(log), knowledge.NewMockConnector(log), gen, 5, pkgRetry.RetryConfig{Attempts: 1}, log)
	store := repository.NewDocumentFileStore(config.StorageConfig{DataRoot: t.TempDir()}, log)

	return SetupRouter(Handlers{
		Report: reportapi.NewHandler(reportUC, v, extract.NewExtractor(upload),
			formatter.NewFactory(config.ExportConfig{DOCXFont: "SimSun", FontSizePt: 12}), upload),
		Knowledge: knowledgeapi.NewHandler(reportUC),
		Document:  documentapi.NewHandler(document.NewUsecase(store, v, log), upload.MaxUploadSize),
	}, 5*time.Second, log)
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := get(newServer(t), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRouter_MetricsAndDocs(t *testing.T) {
	h := newServer(t)

	get(h, "/health")
	rec := get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "report_writer_http_requests_total")

	rec = get(h, "/docs/swagger.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "openapi:"))

	rec = get(h, "/docs")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestRouter_AllRoutesMounted(t *testing.T) {
	h := newServer(t)

	assert.Equal(t, http.StatusOK, get(h, "/api/knowledge-datasets").Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/knowledge-retrieve-test").Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/users/alice/docs").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/api/users/alice/docs/none").Code)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/body", strings.NewReader(`{"topic":"t","outline":["一"]}`))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_dataset", rec.Header().Get("X-Knowledge-Status"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
