package knowledge

import (
	"context"

	"github.com/futig/report-writer/internal/entity"
)

type KnowledgeUsecase interface {
	ListDatasets(ctx context.Context) entity.DatasetListing
	TestRetrieval(ctx context.Context, query string) entity.KnowledgeTestResponse
}
