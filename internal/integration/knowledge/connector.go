package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/integration/common"
	pkgRetry "github.com/futig/report-writer/internal/pkg/retry"
	pkghttp "github.com/futig/report-writer/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	datasetsEndpoint = "/v1/datasets?page=1&limit=100"
	datasetsCacheKey = "datasets"
)

type Connector struct {
	config    config.KnowledgeConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger

	// snippets is nil when the cache is disabled.
	snippets *expirable.LRU[string, []string]
	datasets *cache.Cache
	fallback []entity.DatasetOption
}

func NewConnector(
	cfg config.KnowledgeConnectorConfig,
	logger *zap.Logger,
) *Connector {
	c := &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
		datasets:  cache.New(cfg.DatasetListTTL, 2*cfg.DatasetListTTL),
		fallback:  parseDatasetOptions(cfg.DatasetOptions, logger),
	}
	if cfg.SnippetCacheSize > 0 {
		c.snippets = expirable.NewLRU[string, []string](cfg.SnippetCacheSize, nil, cfg.SnippetCacheTTL)
	}
	return c
}

// Configured reports whether an API key is set for the knowledge service.
func (c *Connector) Configured() bool {
	return strings.TrimSpace(c.config.Token) != ""
}

// DefaultDatasetIDs returns the deployment-wide dataset ids.
func (c *Connector) DefaultDatasetIDs() []string {
	return normalizeIDs(c.config.DatasetIDs)
}

// Retrieve queries every dataset in turn and joins the snippets it gets back.
// It never fails: problems are logged and reported through the result status.
func (c *Connector) Retrieve(ctx context.Context, query string, datasetIDs []string, topK int) entity.KnowledgeQueryResult {
	query = strings.TrimSpace(query)
	result := entity.KnowledgeQueryResult{QueryText: query}

	ids := normalizeIDs(datasetIDs)
	switch {
	case len(ids) == 0:
		result.Status = entity.KnowledgeNoDataset
		return result
	case !c.Configured():
		result.Status = entity.KnowledgeNoAPIKey
		return result
	case query == "":
		result.Status = entity.KnowledgeNoResults
		return result
	}

	perDataset := c.splitTopK(topK, len(ids))

	var (
		snippets []string
		attempts int
		failures int
	)
	for _, id := range ids {
		attempts++
		found, err := c.retrieveDataset(ctx, query, id, perDataset)
		if err != nil {
			failures++
			ctxzap.Warn(ctx, "knowledge retrieval failed for dataset",
				zap.String("dataset_id", id),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		snippets = append(snippets, found...)
	}

	switch {
	case len(snippets) > 0:
		result.Status = entity.KnowledgeUsed
		result.SnippetText = strings.Join(snippets, entity.KnowledgeSeparator)
		result.RecordCount = len(snippets)
	case failures == attempts:
		result.Status = entity.KnowledgeRetrievalFailed
	default:
		result.Status = entity.KnowledgeNoResults
	}

	ctxzap.Info(ctx, "knowledge retrieval finished",
		zap.String("status", string(result.Status)),
		zap.Int("datasets", len(ids)),
		zap.Int("record_count", result.RecordCount),
		zap.Int("total_chars", len([]rune(result.SnippetText))),
	)

	return result
}

// splitTopK spreads the clamped total across datasets, at least one each.
func (c *Connector) splitTopK(topK, datasets int) int {
	if topK <= 0 {
		topK = c.config.TopK
	}
	total := min(max(topK, 1), c.config.MaxTopK)
	return max(1, (total+datasets-1)/datasets)
}

func (c *Connector) retrieveDataset(ctx context.Context, query, datasetID string, topK int) ([]string, error) {
	key := datasetID + "\x00" + strconv.Itoa(topK) + "\x00" + query
	if c.snippets != nil {
		if cached, ok := c.snippets.Get(key); ok {
			ctxzap.Debug(ctx, "knowledge snippets served from cache", zap.String("dataset_id", datasetID))
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("/v1/datasets/%s/retrieve", url.PathEscape(datasetID))

	var raw json.RawMessage
	if err := c.connector.DoRequest(ctx, http.MethodPost, endpoint, c.buildPayload(query, topK), &raw); err != nil {
		return nil, err
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	snippets := extractSnippets(records)

	if c.snippets != nil {
		c.snippets.Add(key, snippets)
	}
	return snippets, nil
}

func (c *Connector) buildPayload(query string, topK int) *entity.RetrievePayload {
	return &entity.RetrievePayload{
		Query: query,
		RetrievalModel: entity.RetrievalModel{
			SearchMethod:    c.config.SearchMethod,
			RerankingEnable: c.config.RerankingEnable,
			TopK:            topK,
			MetadataFilteringConditions: entity.MetadataFilterGroup{
				LogicalOperator: "and",
				Conditions:      []entity.MetadataFilter{},
			},
		},
	}
}

// ListDatasets returns the selectable datasets. Any failure falls back to the
// configured static list.
func (c *Connector) ListDatasets(ctx context.Context) entity.DatasetListing {
	listing := entity.DatasetListing{
		ConfigStatus: entity.KnowledgeConfigStatus{
			APIKeyConfigured: c.Configured(),
			BaseURL:          c.connector.BaseURL(),
		},
	}

	if !c.Configured() {
		listing.Options = c.fallbackOptions()
		return listing
	}

	if cached, ok := c.datasets.Get(datasetsCacheKey); ok {
		listing.Options = cached.([]entity.DatasetOption)
		return listing
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.DatasetListTimeout)
	defer cancel()

	options, err := pkgRetry.Do(ctx, c.config.Retry, func() ([]entity.DatasetOption, error) {
		var resp entity.RemoteDatasetList
		if err := c.connector.DoRequest(ctx, http.MethodGet, datasetsEndpoint, nil, &resp); err != nil {
			var httpErr *pkghttp.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
				return nil, pkgRetry.Permanent(err)
			}
			return nil, err
		}
		return remoteOptions(resp), nil
	})
	if err != nil {
		ctxzap.Warn(ctx, "knowledge dataset listing unavailable, using fallback", zap.Error(err))
		listing.Options = c.fallbackOptions()
		return listing
	}

	c.datasets.SetDefault(datasetsCacheKey, options)
	listing.Options = options
	return listing
}

func (c *Connector) fallbackOptions() []entity.DatasetOption {
	out := make([]entity.DatasetOption, len(c.fallback))
	copy(out, c.fallback)
	return out
}

func remoteOptions(resp entity.RemoteDatasetList) []entity.DatasetOption {
	options := make([]entity.DatasetOption, 0, len(resp.Data))
	for _, item := range resp.Data {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = id
		}
		options = append(options, entity.DatasetOption{ID: id, Name: name})
	}
	return options
}

func parseDatasetOptions(raw string, logger *zap.Logger) []entity.DatasetOption {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var list []entity.DatasetOption
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		logger.Warn("ignoring malformed KNOWLEDGE_DATASETS_OPTIONS", zap.Error(err))
		return nil
	}

	options := make([]entity.DatasetOption, 0, len(list))
	for _, item := range list {
		if item.ID == "" || item.Name == "" {
			continue
		}
		options = append(options, item)
	}
	return options
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
