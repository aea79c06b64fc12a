package entity

import "encoding/json"

type KnowledgeStatus string

const (
	KnowledgeUsed            KnowledgeStatus = "used"
	KnowledgeNoAPIKey        KnowledgeStatus = "no_api_key"
	KnowledgeNoDataset       KnowledgeStatus = "no_dataset"
	KnowledgeRetrievalFailed KnowledgeStatus = "retrieval_failed"
	KnowledgeNoResults       KnowledgeStatus = "no_results"
)

// KnowledgeSeparator joins snippets from one retrieval.
const KnowledgeSeparator = "\n\n---\n\n"

// KnowledgeQueryResult is computed once per generation and never mutated.
type KnowledgeQueryResult struct {
	Status      KnowledgeStatus
	QueryText   string
	SnippetText string
	RecordCount int
}

func (r KnowledgeQueryResult) Used() bool {
	return r.Status == KnowledgeUsed
}

// RetrievePayload is the body of POST /v1/datasets/{id}/retrieve.
type RetrievePayload struct {
	Query          string         `json:"query"`
	RetrievalModel RetrievalModel `json:"retrieval_model"`
}

type RetrievalModel struct {
	SearchMethod                string              `json:"search_method"`
	RerankingEnable             bool                `json:"reranking_enable"`
	RerankingMode               *string             `json:"reranking_mode"`
	RerankingModel              RerankingModel      `json:"reranking_model"`
	Weights                     *float64            `json:"weights"`
	TopK                        int                 `json:"top_k"`
	ScoreThresholdEnabled       bool                `json:"score_threshold_enabled"`
	ScoreThreshold              *float64            `json:"score_threshold"`
	MetadataFilteringConditions MetadataFilterGroup `json:"metadata_filtering_conditions"`
}

type RerankingModel struct {
	ProviderName string `json:"reranking_provider_name"`
	ModelName    string `json:"reranking_model_name"`
}

type MetadataFilterGroup struct {
	LogicalOperator string           `json:"logical_operator"`
	Conditions      []MetadataFilter `json:"conditions"`
}

type MetadataFilter struct {
	Name               string `json:"name"`
	ComparisonOperator string `json:"comparison_operator"`
	Value              string `json:"value"`
}

// RetrieveResponse keeps every candidate record list raw; the connector decides
// which shape it is looking at.
type RetrieveResponse struct {
	Records json.RawMessage `json:"records"`
	Chunks  json.RawMessage `json:"chunks"`
	Data    json.RawMessage `json:"data"`
}

// KnowledgeRecord covers the observed record shapes.
type KnowledgeRecord struct {
	Segment *struct {
		Content string `json:"content"`
	} `json:"segment"`
	Content string  `json:"content"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

type DatasetOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type KnowledgeConfigStatus struct {
	APIKeyConfigured bool   `json:"apiKeyConfigured"`
	BaseURL          string `json:"baseUrl"`
}

type DatasetListing struct {
	Options      []DatasetOption       `json:"options"`
	ConfigStatus KnowledgeConfigStatus `json:"configStatus"`
}

type RemoteDatasetList struct {
	Data []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

type KnowledgeTestResponse struct {
	Success     bool   `json:"success"`
	Query       string `json:"query,omitempty"`
	Status      string `json:"status,omitempty"`
	RecordCount int    `json:"recordCount"`
	TotalChars  int    `json:"totalChars"`
	Preview     string `json:"preview,omitempty"`
	Error       string `json:"error,omitempty"`
}
