package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/entity"
	"github.com/futig/report-writer/internal/pkg/metrics"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle       State = "idle"
	StateAssembling State = "assembling-prompt"
	StateRetrieving State = "retrieving-knowledge"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
	StateFailed     State = "failed"
)

const (
	FullFallbackMarker    = "\n\n[生成中断或出错，请重试。]"
	SectionFallbackMarker = "\n[本节生成中断或出错]"
	EncodingFallback      = "\n\n[生成中断：内容包含无法识别的字符编码，请移除引用资料或知识库内容后重试。]"
)

// Generator drives one body generation from request to closed stream.
type Generator struct {
	model     ChatModel
	knowledge KnowledgeRetriever
	cfg       config.GenerationConfig
	topK      int
	logger    *zap.Logger
}

func NewGenerator(
	model ChatModel,
	knowledge KnowledgeRetriever,
	cfg config.GenerationConfig,
	topK int,
	logger *zap.Logger,
) *Generator {
	return &Generator{
		model:     model,
		knowledge: knowledge,
		cfg:       cfg,
		topK:      topK,
		logger:    logger,
	}
}

// Generation is one running stream. Knowledge is fixed once Start returns.
type Generation struct {
	Knowledge entity.KnowledgeQueryResult

	mode      entity.GenerationMode
	stream    entity.FragmentStream
	ctx       context.Context
	cancelCtx context.CancelFunc
	logger    *zap.Logger

	state      atomic.Value
	aborted    atomic.Bool
	cancelOnce sync.Once
	forwarded  atomic.Int64
	startedAt  time.Time
}

// Start runs every step that can still be reported as a plain error: prompt
// assembly, knowledge lookup and opening the model stream. Parent
// cancellation ends the generation; so does the per-mode timeout.
func (g *Generator) Start(ctx context.Context, req *entity.GenerationRequest) (*Generation, error) {
	timeout := g.cfg.FullTimeout
	if req.Mode == entity.ModeSections {
		timeout = g.cfg.SectionTimeout
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)

	gen := &Generation{
		mode:      req.Mode,
		ctx:       genCtx,
		cancelCtx: cancel,
		logger:    ctxzap.Extract(ctx),
	}
	gen.setState(StateIdle)

	gen.setState(StateAssembling)
	chatReq := entity.ChatRequest{Temperature: g.cfg.Temperature}
	if req.Mode == entity.ModeSections {
		chatReq.MaxTokens = TokenBudget(req.TargetWordCount, g.cfg.TokenMultiplier, g.cfg.MinTokens, g.cfg.MaxSectionTokens)
	} else {
		chatReq.MaxTokens = TokenBudget(req.TargetWordCount, g.cfg.TokenMultiplier, g.cfg.MinTokens, g.cfg.MaxFullTokens)
	}

	gen.Knowledge = g.lookupKnowledge(genCtx, gen, req)
	metrics.KnowledgeRetrievals.WithLabelValues(string(gen.Knowledge.Status)).Inc()

	if req.Mode == entity.ModeSections {
		chatReq.Messages = BuildSectionPrompt(req, gen.Knowledge.SnippetText, g.cfg.WordCountDiscipline)
	} else {
		chatReq.Messages = BuildFullPrompt(req, gen.Knowledge.SnippetText, g.cfg.WordCountDiscipline)
	}

	ctxzap.Info(ctx, "opening generation stream",
		zap.String("mode", string(req.Mode)),
		zap.Int("target_words", req.TargetWordCount),
		zap.Int("max_tokens", chatReq.MaxTokens),
		zap.String("knowledge_status", string(gen.Knowledge.Status)),
	)

	stream, err := g.model.StreamChat(genCtx, chatReq)
	if err != nil {
		cancel()
		gen.setState(StateFailed)
		metrics.GenerationTotal.WithLabelValues(string(req.Mode), string(StateFailed)).Inc()
		return nil, fmt.Errorf("open model stream: %w", err)
	}

	gen.stream = stream
	gen.startedAt = time.Now()
	return gen, nil
}

// lookupKnowledge only calls the retriever when there is something to ask and
// a key to ask with.
func (g *Generator) lookupKnowledge(ctx context.Context, gen *Generation, req *entity.GenerationRequest) entity.KnowledgeQueryResult {
	query := req.KnowledgeQuery()
	switch {
	case len(req.KnowledgeDatasetIDs) == 0:
		return entity.KnowledgeQueryResult{Status: entity.KnowledgeNoDataset, QueryText: query}
	case !g.knowledge.Configured():
		return entity.KnowledgeQueryResult{Status: entity.KnowledgeNoAPIKey, QueryText: query}
	}

	gen.setState(StateRetrieving)
	retrieveCtx, cancel := context.WithTimeout(ctx, g.cfg.RetrievalTimeout)
	defer cancel()

	return g.knowledge.Retrieve(retrieveCtx, query, req.KnowledgeDatasetIDs, g.topK)
}

func (gen *Generation) setState(s State) {
	gen.state.Store(s)
}

func (gen *Generation) State() State {
	return gen.state.Load().(State)
}

// Forwarded is the number of bytes handed to the writer so far.
func (gen *Generation) Forwarded() int64 {
	return gen.forwarded.Load()
}

// Stream forwards fragments to w in arrival order until the model finishes,
// the caller cancels, or something fails. On failure one fallback marker is
// written before returning. The returned state is terminal.
func (gen *Generation) Stream(w FragmentWriter) State {
	defer gen.cancelCtx()
	defer gen.stream.Close()

	gen.setState(StateStreaming)
	final := gen.pump(w)
	gen.setState(final)

	mode := string(gen.mode)
	metrics.GenerationTotal.WithLabelValues(mode, string(final)).Inc()
	metrics.GenerationDuration.WithLabelValues(mode).Observe(time.Since(gen.startedAt).Seconds())

	gen.logger.Info("generation finished",
		zap.String("mode", mode),
		zap.String("state", string(final)),
		zap.Int64("forwarded_bytes", gen.forwarded.Load()),
		zap.Duration("elapsed", time.Since(gen.startedAt)),
	)
	return final
}

func (gen *Generation) pump(w FragmentWriter) State {
	for fragment, err := range gen.stream.Fragments() {
		if err != nil {
			return gen.fail(w, err)
		}
		// Cancel may land while the read was blocked.
		if gen.aborted.Load() {
			return StateAborted
		}
		if werr := w.WriteFragment(fragment); werr != nil {
			gen.logger.Info("client stopped reading, aborting generation", zap.Error(werr))
			gen.Cancel()
			return StateAborted
		}
		gen.forwarded.Add(int64(len(fragment)))
		metrics.FragmentsForwarded.WithLabelValues(string(gen.mode)).Inc()
	}

	if gen.aborted.Load() {
		return StateAborted
	}
	if err := gen.ctx.Err(); err != nil {
		// The stream ended because the deadline or the parent context cut it.
		return gen.fail(w, err)
	}
	return StateCompleted
}

func (gen *Generation) fail(w FragmentWriter, err error) State {
	if gen.aborted.Load() || errors.Is(gen.ctx.Err(), context.Canceled) {
		return StateAborted
	}

	gen.logger.Error("generation stream failed",
		zap.String("mode", string(gen.mode)),
		zap.Int64("forwarded_bytes", gen.forwarded.Load()),
		zap.Error(err),
	)

	marker := FullFallbackMarker
	switch {
	case entity.IsEncodingError(err):
		marker = EncodingFallback
	case gen.mode == entity.ModeSections:
		marker = SectionFallbackMarker
	}
	// Best effort: the reader may already be gone.
	_ = w.WriteFragment(marker)
	return StateFailed
}

// Cancel stops the generation and releases the model connection. Text already
// forwarded stays with the reader; no fragment read after Cancel is written.
// Calling it again has no further effect.
func (gen *Generation) Cancel() {
	gen.cancelOnce.Do(func() {
		gen.aborted.Store(true)
		gen.cancelCtx()
		if gen.stream != nil {
			_ = gen.stream.Close()
		}
	})
}
