package report

import (
	"context"

	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/extract"
	"github.com/futig/report-writer/internal/pkg/formatter"
	reportuc "github.com/futig/report-writer/internal/usecase/report"
)

type ReportUsecase interface {
	StartGeneration(ctx context.Context, req *entity.GenerationRequest) (*reportuc.Generation, error)
	GenerateOutline(ctx context.Context, req entity.OutlineRequest) ([]string, error)
	Transform(ctx context.Context, req entity.TransformRequest) (string, error)
}

type ReferenceExtractor interface {
	Extract(files []extract.File) entity.ReferenceExtractResponse
}

type FormatterFactory interface {
	Create(format entity.ResultFormat) (formatter.Formatter, error)
}
