package document

import (
	"context"
	"fmt"

	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/validator"
	"github.com/futig/report-writer/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// DocumentUsecase implements the saved-report endpoints
type DocumentUsecase struct {
	repo      repository.DocumentRepository
	validator *validator.Validator
	logger    *zap.Logger
}

func NewUsecase(repo repository.DocumentRepository, validator *validator.Validator, logger *zap.Logger) *DocumentUsecase {
	return &DocumentUsecase{
		repo:      repo,
		validator: validator,
		logger:    logger,
	}
}

func (uc *DocumentUsecase) List(ctx context.Context, userID string) ([]entity.DocMeta, error) {
	docs, err := uc.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (uc *DocumentUsecase) Get(ctx context.Context, userID, docID string) (*entity.Document, error) {
	doc, err := uc.repo.Get(ctx, userID, docID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Create stores a new document under a fresh id.
func (uc *DocumentUsecase) Create(ctx context.Context, userID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error) {
	return uc.save(ctx, userID, "", req)
}

// Update overwrites docID, creating it if it does not exist yet.
func (uc *DocumentUsecase) Update(ctx context.Context, userID, docID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error) {
	if docID == "" {
		return nil, entity.NewValidationError(entity.ErrMissingField, "docId", "缺少 userId 或 docId")
	}
	return uc.save(ctx, userID, docID, req)
}

func (uc *DocumentUsecase) save(ctx context.Context, userID, docID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error) {
	uc.validator.NormalizeSaveDocument(&req)

	meta, err := uc.repo.Save(ctx, userID, docID, req)
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	ctxzap.Info(ctx, "document saved",
		zap.String("doc_id", meta.ID),
		zap.String("title", meta.Title),
		zap.Int("sections", len(req.Outline)),
	)
	return meta, nil
}
