package document

import (
	"context"

	"github.com/futig/report-writer/internal/entity"
)

type DocumentUsecase interface {
	List(ctx context.Context, userID string) ([]entity.DocMeta, error)
	Get(ctx context.Context, userID, docID string) (*entity.Document, error)
	Create(ctx context.Context, userID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error)
	Update(ctx context.Context, userID, docID string, req entity.SaveDocumentRequest) (*entity.DocMeta, error)
}
