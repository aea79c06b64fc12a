package builder

import (
	"fmt"
	"net/http"
	"time"

	"github.com/futig/report-writer/internal/api"
	documentapi "github.com/futig/report-writer/internal/api/document"
	knowledgeapi "github.com/futig/report-writer/internal/api/knowledge"
	reportapi "github.com/futig/report-writer/internal/api/report"
	"github.com/futig/report-writer/internal/config"
	"github.com/futig/report-writer/internal/integration/knowledge"
	"github.com/futig/report-writer/internal/integration/llm"
	"github.com/futig/report-writer/internal/pkg/extract"
	"github.com/futig/report-writer/internal/pkg/formatter"
	"github.com/futig/report-writer/internal/pkg/logger"
	"github.com/futig/report-writer/internal/pkg/office"
	"github.com/futig/report-writer/internal/pkg/validator"
	"github.com/futig/report-writer/internal/repository"
	"github.com/futig/report-writer/internal/usecase/document"
	"github.com/futig/report-writer/internal/usecase/report"
	"go.uber.org/zap"
)

// streamWriteSlack is added to the longest generation deadline so the
// fallback marker can still be written after a timeout.
const streamWriteSlack = 30 * time.Second

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	log.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	if key := cfg.ExportCfg.UnidocLicenseKey; key != "" {
		if err := office.Activate(key); err != nil {
			return nil, fmt.Errorf("activate unidoc license: %w", err)
		}
		log.Info("UniDoc license activated")
	} else {
		log.Warn("UniDoc license key not set, DOCX export and .docx extraction will fail",
			zap.String("env", office.LicenseKeyEnv),
		)
	}

	router := buildRouter(cfg, log)
	log.Info("HTTP router configured")

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      max(cfg.GenerationCfg.FullTimeout, cfg.RequestTimeout) + streamWriteSlack,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
		zap.Duration("write_timeout", server.WriteTimeout),
	)

	return &App{
		server:          server,
		logger:          log,
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// buildRouter wires connectors, use cases and handlers.
func buildRouter(cfg *config.Config, log *zap.Logger) http.Handler {
	var (
		model     report.ChatModel
		retriever report.KnowledgeRetriever
	)
	if cfg.EnableMocks {
		log.Info("Using mock connectors for external services")
		model = llm.NewMockConnector(log)
		retriever = knowledge.NewMockConnector(log)
	} else {
		log.Info("Using real connectors for external services",
			zap.String("llm_base_url", cfg.LLMConnectorCfg.Url),
			zap.String("llm_model", cfg.LLMConnectorCfg.Model),
			zap.String("knowledge_base_url", cfg.KnowledgeConnectorCfg.Url),
		)
		model = llm.NewConnector(cfg.LLMConnectorCfg, log)
		retriever = knowledge.NewConnector(cfg.KnowledgeConnectorCfg, log)
	}

	v := validator.New(cfg.GenerationCfg)
	store := repository.NewDocumentFileStore(cfg.StorageCfg, log)

	reportUC := report.NewUsecase(
		model,
		retriever,
		cfg.GenerationCfg,
		cfg.KnowledgeConnectorCfg.TopK,
		cfg.LLMConnectorCfg.Retry,
		log,
	)
	documentUC := document.NewUsecase(store, v, log)
	log.Info("Use cases initialized")

	handlers := api.Handlers{
		Report: reportapi.NewHandler(
			reportUC,
			v,
			extract.NewExtractor(cfg.FileUploadCfg),
			formatter.NewFactory(cfg.ExportCfg),
			cfg.FileUploadCfg,
		),
		Knowledge: knowledgeapi.NewHandler(reportUC),
		Document:  documentapi.NewHandler(documentUC, cfg.FileUploadCfg.MaxUploadSize),
	}
	log.Info("API handlers initialized")

	return api.SetupRouter(handlers, cfg.RequestTimeout, log)
}
