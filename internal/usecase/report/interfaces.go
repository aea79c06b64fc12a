package report

import (
	"context"

	"github.com/futig/report-writer/internal/entity"
)

type ChatModel interface {
	ChatCompletion(ctx context.Context, req entity.ChatRequest) (string, error)
	StreamChat(ctx context.Context, req entity.ChatRequest) (entity.FragmentStream, error)
}

type KnowledgeRetriever interface {
	Configured() bool
	DefaultDatasetIDs() []string
	Retrieve(ctx context.Context, query string, datasetIDs []string, topK int) entity.KnowledgeQueryResult
	ListDatasets(ctx context.Context) entity.DatasetListing
}

// FragmentWriter receives generated text as it arrives. An error means the
// reader has gone away and the generation should stop.
type FragmentWriter interface {
	WriteFragment(text string) error
}
