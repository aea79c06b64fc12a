package report

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/extract"
	"github.com/futig/report-writer/internal/pkg/logger"
	"github.com/futig/report-writer/internal/pkg/response"
	"github.com/futig/report-writer/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	msgBodyFailed    = "生成正文失败，请稍后重试"
	msgSectionFailed = "本节生成失败，请重试"
	msgOutlineFailed = "生成大纲失败，请稍后重试"
	msgPolishFailed  = "文本处理失败，请稍后重试"
	msgExportFailed  = "导出文档失败"
	msgInvalidForm   = "表单数据无效或文件过大"
	msgNoFiles       = "请上传引用文件"
	msgBodyTooLarge  = "请求体过大"

	exportFileName = "document"
)

type Handler struct {
	usecase    ReportUsecase
	validator  *validator.Validator
	extractor  ReferenceExtractor
	formatters FormatterFactory
	cfg        config.FileUploadConfig
}

func NewHandler(
	usecase ReportUsecase,
	validator *validator.Validator,
	extractor ReferenceExtractor,
	formatters FormatterFactory,
	cfg config.FileUploadConfig,
) *Handler {
	return &Handler{
		usecase:    usecase,
		validator:  validator,
		extractor:  extractor,
		formatters: formatters,
		cfg:        cfg,
	}
}

// GenerateBody handles POST /api/body
func (h *Handler) GenerateBody(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, entity.ModeFull)
}

// GenerateSection handles POST /api/body-section
func (h *Handler) GenerateSection(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, entity.ModeSections)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request, mode entity.GenerationMode) {
	ctx := logger.WithAction(r.Context(), "Generate-"+string(mode))

	var body entity.BodyRequest
	if err := h.decodeJSON(w, r, &body); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	var (
		req      *entity.GenerationRequest
		err      error
		fallback = msgBodyFailed
	)
	if mode == entity.ModeSections {
		req, err = h.validator.ValidateSection(&body)
		fallback = msgSectionFailed
	} else {
		req, err = h.validator.ValidateBody(&body)
	}
	if err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	ctx = logger.AddFields(ctx,
		zap.Int("outline_len", len(req.Outline)),
		zap.Int("target_words", req.TargetWordCount),
		zap.Int("datasets", len(req.KnowledgeDatasetIDs)),
	)
	if req.SectionIndex != nil {
		ctx = logger.AddFields(ctx, zap.Int("section_index", *req.SectionIndex))
	}

	gen, err := h.usecase.StartGeneration(ctx, req)
	if err != nil {
		response.HandleError(ctx, w, err, fallback)
		return
	}

	setStreamHeaders(w.Header(), gen.Knowledge)
	w.WriteHeader(http.StatusOK)

	sw := newStreamWriter(w)
	if err := sw.flush(); err != nil {
		ctxzap.Info(ctx, "client gone before streaming started", zap.Error(err))
		gen.Cancel()
	}

	// A disconnecting client cancels the model request.
	stop := context.AfterFunc(r.Context(), gen.Cancel)
	defer stop()

	state := gen.Stream(sw)
	ctxzap.Info(ctx, "body stream closed",
		zap.String("state", string(state)),
		zap.Int64("bytes", gen.Forwarded()),
	)
}

// GenerateOutline handles POST /api/outline. The body is either JSON or a
// multipart form whose "files" are extracted into reference text.
func (h *Handler) GenerateOutline(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "GenerateOutline")

	var req entity.OutlineRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
			ctxzap.Warn(ctx, "failed to parse multipart form", zap.Error(err))
			response.Error(w, http.StatusBadRequest, msgInvalidForm)
			return
		}
		req = entity.OutlineRequest{
			Topic:         r.FormValue("topic"),
			CoreContent:   r.FormValue("coreContent"),
			StyleMode:     r.FormValue("styleMode"),
			ReferenceText: r.FormValue("referenceText"),
		}
		if files := r.MultipartForm.File["files"]; len(files) > 0 {
			extracted := h.extractor.Extract(extract.FromMultipart(files))
			for _, e := range extracted.Errors {
				ctxzap.Warn(ctx, "reference file skipped", zap.String("reason", e))
			}
			req.ReferenceText = joinNonEmpty(req.ReferenceText, extracted.ReferenceText)
		}
	} else if err := h.decodeJSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	if err := h.validator.ValidateOutline(&req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	outline, err := h.usecase.GenerateOutline(ctx, req)
	if err != nil {
		response.HandleError(ctx, w, err, msgOutlineFailed)
		return
	}

	response.Success(w, entity.OutlineResponse{Outline: outline})
}

// Polish handles POST /api/polish
func (h *Handler) Polish(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Polish")

	var req entity.TransformRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}
	if err := h.validator.ValidateTransform(&req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	text, err := h.usecase.Transform(ctx, req)
	if err != nil {
		response.HandleError(ctx, w, err, msgPolishFailed)
		return
	}

	ctxzap.Info(ctx, "text transformed",
		zap.String("transform", req.Action),
		zap.Int("input_runes", len([]rune(req.Text))),
		zap.Int("output_runes", len([]rune(text))),
	)
	response.Success(w, entity.TransformResponse{Text: text})
}

// ExtractReference handles POST /api/extract-reference
func (h *Handler) ExtractReference(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ExtractReference")

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		ctxzap.Warn(ctx, "failed to parse multipart form", zap.Error(err))
		response.Error(w, http.StatusBadRequest, msgInvalidForm)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		response.Error(w, http.StatusBadRequest, msgNoFiles)
		return
	}

	res := h.extractor.Extract(extract.FromMultipart(files))
	ctxzap.Info(ctx, "reference extracted",
		zap.Int("files", len(files)),
		zap.Int("chars", len([]rune(res.ReferenceText))),
		zap.Strings("errors", res.Errors),
	)
	response.Success(w, res)
}

// Export handles POST /api/export?format=docx|pdf|markdown
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, r.URL.Query().Get("format"))
}

// ExportDOCX handles POST /api/export-docx
func (h *Handler) ExportDOCX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, string(entity.FormatDOCX))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, rawFormat string) {
	ctx := logger.WithAction(r.Context(), "Export")

	var req entity.ExportRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}
	format, err := h.validator.ValidateExport(rawFormat, &req)
	if err != nil {
		response.HandleError(ctx, w, err, "")
		return
	}

	f, err := h.formatters.Create(format)
	if err != nil {
		response.HandleError(ctx, w, err, msgExportFailed)
		return
	}
	data, err := f.Format(req.HTML)
	if err != nil {
		response.HandleError(ctx, w, err, msgExportFailed)
		return
	}

	ctxzap.Info(ctx, "document exported", zap.String("format", string(format)), zap.Int("bytes", len(data)))

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, exportFileName, f.FileExtension()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		ctxzap.Warn(ctx, "failed to write export", zap.Error(err))
	}
}

// decodeJSON reads the whole body, bounded by the upload limit, and decodes it.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize))
	if err != nil {
		return entity.NewValidationError(entity.ErrInvalidParameter, "body", msgBodyTooLarge)
	}
	return validator.DecodeJSON(raw, dst)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, entity.KnowledgeSeparator)
}
