package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/integration/common"
	pkghttp "github.com/futig/report-writer/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const chatEndpoint = "/v1/chat/completions"

type Connector struct {
	config    config.LLMConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.LLMConnectorConfig,
	logger *zap.Logger,
) *Connector {
	httpCfg := cfg.HTTPClientConfig
	// Every call carries its own context deadline; a client-wide timeout
	// would also cut off long streamed bodies.
	httpCfg.RequestTimeout = 0

	return &Connector{
		connector: common.NewBaseConnector(httpCfg, logger, pkghttp.WithDisableCompression()),
		config:    cfg,
		logger:    logger,
	}
}

// ChatCompletion sends one non-streaming request and returns the whole reply.
func (c *Connector) ChatCompletion(ctx context.Context, req entity.ChatRequest) (string, error) {
	payload, err := c.buildPayload(req, false)
	if err != nil {
		return "", err
	}

	ctxzap.Debug(ctx, "requesting chat completion",
		zap.String("model", payload.Model),
		zap.Int("max_tokens", payload.MaxTokens),
	)

	var resp entity.ChatCompletionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, chatEndpoint, payload, &resp); err != nil {
		return "", toUpstreamError(err)
	}

	if len(resp.Choices) == 0 {
		return "", entity.ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		content = resp.Choices[0].Content
	}

	ctxzap.Debug(ctx, "chat completion received", zap.Int("result_length", len(content)))

	return content, nil
}

// StreamChat opens a streamed completion. Failures that happen before the first
// byte (missing key, bad input encoding, network, non-2xx) are returned here;
// later failures surface through the returned stream.
func (c *Connector) StreamChat(ctx context.Context, req entity.ChatRequest) (entity.FragmentStream, error) {
	payload, err := c.buildPayload(req, true)
	if err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "opening chat stream",
		zap.String("model", payload.Model),
		zap.Int("max_tokens", payload.MaxTokens),
	)

	body, err := c.connector.OpenStream(ctx, http.MethodPost, chatEndpoint, payload)
	if err != nil {
		return nil, toUpstreamError(err)
	}

	return NewChatStream(body), nil
}

func (c *Connector) buildPayload(req entity.ChatRequest, stream bool) (*entity.ChatCompletionPayload, error) {
	if strings.TrimSpace(c.config.Token) == "" {
		return nil, entity.ErrModelNotConfigured
	}

	for _, msg := range req.Messages {
		if !utf8.ValidString(msg.Content) {
			return nil, &entity.EncodingError{
				Where:  string(msg.Role) + " message",
				Offset: invalidUTF8Offset(msg.Content),
			}
		}
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.config.Model
	}

	return &entity.ChatCompletionPayload{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}, nil
}

// toUpstreamError converts transport failures into typed model-service errors.
// Context cancellation is passed through untouched.
func toUpstreamError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return &entity.UpstreamError{
			StatusCode: httpErr.StatusCode,
			Auth:       httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden,
			Err:        err,
		}
	}

	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return &entity.UpstreamError{Err: err}
	}

	return fmt.Errorf("chat request: %w", err)
}

func invalidUTF8Offset(s string) int {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size <= 1 {
				return i
			}
		}
	}
	return len(s)
}
