package document

import (
	"io"
	"net/http"

	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/logger"
	"github.com/futig/report-writer/internal/pkg/response"
	"github.com/futig/report-writer/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	msgListFailed   = "获取文档列表失败"
	msgCreateFailed = "创建文档失败"
	msgGetFailed    = "获取文档失败"
	msgUpdateFailed = "更新文档失败"
	msgBodyTooLarge = "请求体过大"
)

type Handler struct {
	usecase     DocumentUsecase
	maxBodySize int64
}

func NewHandler(usecase DocumentUsecase, maxBodySize int64) *Handler {
	return &Handler{
		usecase:     usecase,
		maxBodySize: maxBodySize,
	}
}

// ListDocuments handles GET /api/users/{userId}/docs
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	ctx := logger.AddFields(logger.WithAction(r.Context(), "ListDocuments"), zap.String("user_id", userID))

	docs, err := h.usecase.List(ctx, userID)
	if err != nil {
		response.HandleError(ctx, w, err, msgListFailed)
		return
	}

	response.Success(w, entity.ListDocumentsResponse{Docs: docs})
}

// CreateDocument handles POST /api/users/{userId}/docs
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	ctx := logger.AddFields(logger.WithAction(r.Context(), "CreateDocument"), zap.String("user_id", userID))

	var req entity.SaveDocumentRequest
	if err := h.decode(w, r, &req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	meta, err := h.usecase.Create(ctx, userID, req)
	if err != nil {
		response.HandleError(ctx, w, err, msgCreateFailed)
		return
	}

	response.Success(w, meta)
}

// GetDocument handles GET /api/users/{userId}/docs/{docId}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, docID := chi.URLParam(r, "userId"), chi.URLParam(r, "docId")
	ctx := logger.AddFields(logger.WithAction(r.Context(), "GetDocument"),
		zap.String("user_id", userID),
		zap.String("doc_id", docID),
	)

	doc, err := h.usecase.Get(ctx, userID, docID)
	if err != nil {
		response.HandleError(ctx, w, err, msgGetFailed)
		return
	}

	response.Success(w, doc)
}

// UpdateDocument handles PUT /api/users/{userId}/docs/{docId}
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID, docID := chi.URLParam(r, "userId"), chi.URLParam(r, "docId")
	ctx := logger.AddFields(logger.WithAction(r.Context(), "UpdateDocument"),
		zap.String("user_id", userID),
		zap.String("doc_id", docID),
	)

	var req entity.SaveDocumentRequest
	if err := h.decode(w, r, &req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	meta, err := h.usecase.Update(ctx, userID, docID, req)
	if err != nil {
		response.HandleError(ctx, w, err, msgUpdateFailed)
		return
	}

	response.Success(w, meta)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		return entity.NewValidationError(entity.ErrInvalidParameter, "body", msgBodyTooLarge)
	}
	return validator.DecodeJSON(raw, dst)
}
