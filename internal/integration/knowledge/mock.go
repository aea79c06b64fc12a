package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/report-writer/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector returns canned snippets for local runs.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Configured() bool {
	return true
}

func (m *MockConnector) DefaultDatasetIDs() []string {
	return []string{"mock-dataset"}
}

func (m *MockConnector) Retrieve(ctx context.Context, query string, datasetIDs []string, topK int) entity.KnowledgeQueryResult {
	query = strings.TrimSpace(query)
	ids := normalizeIDs(datasetIDs)

	ctxzap.Info(ctx, "[MOCK] retrieving knowledge",
		zap.String("query", query),
		zap.Int("datasets", len(ids)),
	)

	if len(ids) == 0 {
		return entity.KnowledgeQueryResult{Status: entity.KnowledgeNoDataset, QueryText: query}
	}

	snippets := make([]string, 0, len(ids))
	for _, id := range ids {
		snippets = append(snippets, fmt.Sprintf("知识库 %s 中与「%s」相关的示例片段（MOCK）。", id, query))
	}

	return entity.KnowledgeQueryResult{
		Status:      entity.KnowledgeUsed,
		QueryText:   query,
		SnippetText: strings.Join(snippets, entity.KnowledgeSeparator),
		RecordCount: len(snippets),
	}
}

func (m *MockConnector) ListDatasets(ctx context.Context) entity.DatasetListing {
	ctxzap.Info(ctx, "[MOCK] listing knowledge datasets")

	return entity.DatasetListing{
		Options: []entity.DatasetOption{{ID: "mock-dataset", Name: "示例知识库（MOCK）"}},
		ConfigStatus: entity.KnowledgeConfigStatus{
			APIKeyConfigured: true,
			BaseURL:          "mock://knowledge",
		},
	}
}
