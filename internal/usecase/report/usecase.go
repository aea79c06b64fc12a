package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/metrics"
	pkgRetry "github.com/futig/report-writer/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	outlineTemperature   = 0.5
	outlineMaxTokens     = 2048
	transformTemperature = 0.4
	transformMaxTokens   = 2048

	retrievalTestTopK    = 5
	retrievalPreviewRune = 300
	defaultTestQuery     = "测试"
)

// ReportUsecase implements everything behind the report endpoints except
// document storage.
type ReportUsecase struct {
	generator *Generator
	model     ChatModel
	knowledge KnowledgeRetriever
	cfg       config.GenerationConfig
	retry     pkgRetry.RetryConfig
	logger    *zap.Logger
}

func NewUsecase(
	model ChatModel,
	knowledge KnowledgeRetriever,
	cfg config.GenerationConfig,
	topK int,
	retryCfg pkgRetry.RetryConfig,
	logger *zap.Logger,
) *ReportUsecase {
	return &ReportUsecase{
		generator: NewGenerator(model, knowledge, cfg, topK, logger),
		model:     model,
		knowledge: knowledge,
		cfg:       cfg,
		retry:     retryCfg,
		logger:    logger,
	}
}

// StartGeneration opens a body stream for a validated request.
func (uc *ReportUsecase) StartGeneration(ctx context.Context, req *entity.GenerationRequest) (*Generation, error) {
	return uc.generator.Start(ctx, req)
}

// GenerateOutline asks the model for first-level headings. Transient upstream
// failures and empty answers are retried.
func (uc *ReportUsecase) GenerateOutline(ctx context.Context, req entity.OutlineRequest) ([]string, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return nil, entity.NewValidationError(entity.ErrMissingField, "topic", "报告主题不能为空")
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.OutlineTimeout)
	defer cancel()

	chatReq := entity.ChatRequest{
		Messages:    BuildOutlinePrompt(req),
		Temperature: outlineTemperature,
		MaxTokens:   outlineMaxTokens,
	}

	outline, err := pkgRetry.Do(ctx, uc.retry, func() ([]string, error) {
		text, err := uc.model.ChatCompletion(ctx, chatReq)
		if err != nil {
			if !retryable(err) {
				return nil, pkgRetry.Permanent(err)
			}
			ctxzap.Warn(ctx, "outline attempt failed", zap.Error(err))
			return nil, err
		}

		lines := ParseOutline(text)
		if len(lines) == 0 {
			return nil, entity.ErrEmptyCompletion
		}
		return lines, nil
	})
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues("outline", "error").Inc()
		return nil, fmt.Errorf("generate outline: %w", err)
	}
	metrics.LLMCallTotal.WithLabelValues("outline", "ok").Inc()

	ctxzap.Info(ctx, "outline generated", zap.Int("sections", len(outline)))
	return outline, nil
}

// Transform polishes, simplifies or expands a passage in one call.
func (uc *ReportUsecase) Transform(ctx context.Context, req entity.TransformRequest) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", entity.NewValidationError(entity.ErrMissingField, "text", "未提供待处理文本")
	}
	action := entity.ParseTransformAction(req.Action)

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.TransformTimeout)
	defer cancel()

	out, err := uc.model.ChatCompletion(ctx, entity.ChatRequest{
		Messages:    BuildTransformPrompt(action, text),
		Temperature: transformTemperature,
		MaxTokens:   transformMaxTokens,
	})
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(string(action), "error").Inc()
		return "", fmt.Errorf("%s text: %w", action, err)
	}
	metrics.LLMCallTotal.WithLabelValues(string(action), "ok").Inc()

	return strings.TrimSpace(out), nil
}

func (uc *ReportUsecase) ListDatasets(ctx context.Context) entity.DatasetListing {
	return uc.knowledge.ListDatasets(ctx)
}

// TestRetrieval runs one lookup against the deployment's default datasets.
func (uc *ReportUsecase) TestRetrieval(ctx context.Context, query string) entity.KnowledgeTestResponse {
	query = strings.TrimSpace(query)
	if query == "" {
		query = defaultTestQuery
	}

	ids := uc.knowledge.DefaultDatasetIDs()
	if !uc.knowledge.Configured() || len(ids) == 0 {
		return entity.KnowledgeTestResponse{
			Success: false,
			Error:   "未配置 KNOWLEDGE_API_KEY 或 KNOWLEDGE_DATASET_IDS",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.RetrievalTimeout)
	defer cancel()

	result := uc.knowledge.Retrieve(ctx, query, ids, retrievalTestTopK)

	resp := entity.KnowledgeTestResponse{
		Success:     true,
		Query:       query,
		Status:      string(result.Status),
		RecordCount: result.RecordCount,
	}
	runes := []rune(result.SnippetText)
	resp.TotalChars = len(runes)
	if len(runes) > retrievalPreviewRune {
		resp.Preview = string(runes[:retrievalPreviewRune]) + "…"
	} else {
		resp.Preview = result.SnippetText
	}
	return resp
}

// ParseOutline keeps every non-blank line, trimmed.
func ParseOutline(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func retryable(err error) bool {
	if errors.Is(err, entity.ErrModelNotConfigured) || entity.IsEncodingError(err) || entity.IsAuthError(err) {
		return false
	}
	var upErr *entity.UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode >= 400 && upErr.StatusCode < 500 && upErr.StatusCode != 429 {
		return false
	}
	return true
}
