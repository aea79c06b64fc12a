package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/report-writer/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr      string        `env:"SERVER_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	// RequestTimeout bounds every route except the body streams.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"90s"`

	// External service configurations
	LLMConnectorCfg       LLMConnectorConfig       `envPrefix:"LLM_"`
	KnowledgeConnectorCfg KnowledgeConnectorConfig `envPrefix:"KNOWLEDGE_"`

	GenerationCfg GenerationConfig `envPrefix:"GENERATION_"`
	StorageCfg    StorageConfig    `envPrefix:"STORAGE_"`
	ExportCfg     ExportConfig     `envPrefix:"EXPORT_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"API_KEY"`
	Url                   string        `env:"BASE_URL"`
}

type LLMConnectorConfig struct {
	HTTPClientConfig
	Model string               `env:"MODEL" envDefault:"deepseek-ai/DeepSeek-V3.2"`
	Retry pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type KnowledgeConnectorConfig struct {
	HTTPClientConfig
	DatasetIDs []string `env:"DATASET_IDS" envSeparator:","`

	// DatasetOptions is a JSON array of {id, name} used when the dataset list cannot be fetched.
	DatasetOptions     string               `env:"DATASETS_OPTIONS"`
	TopK               int                  `env:"TOP_K" envDefault:"5"`
	MaxTopK            int                  `env:"MAX_TOP_K" envDefault:"20"`
	SearchMethod       string               `env:"SEARCH_METHOD" envDefault:"keyword_search"`
	RerankingEnable    bool                 `env:"RERANKING_ENABLE" envDefault:"false"`
	SnippetCacheSize   int                  `env:"SNIPPET_CACHE_SIZE" envDefault:"256"`
	SnippetCacheTTL    time.Duration        `env:"SNIPPET_CACHE_TTL" envDefault:"5m"`
	DatasetListTTL     time.Duration        `env:"DATASET_LIST_TTL" envDefault:"1m"`
	DatasetListTimeout time.Duration        `env:"DATASET_LIST_TIMEOUT" envDefault:"10s"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// GenerationConfig holds the body-generation policy knobs.
type GenerationConfig struct {
	TokenMultiplier     float64 `env:"TOKEN_MULTIPLIER" envDefault:"1.5"`
	MinTokens           int     `env:"MIN_TOKENS" envDefault:"256"`
	MaxSectionTokens    int     `env:"MAX_SECTION_TOKENS" envDefault:"16384"`
	MaxFullTokens       int     `env:"MAX_FULL_TOKENS" envDefault:"8192"`
	MinWordCount        int     `env:"MIN_WORD_COUNT" envDefault:"20"`
	DefaultWordCount    int     `env:"DEFAULT_WORD_COUNT" envDefault:"3000"`
	DefaultSectionWords int     `env:"DEFAULT_SECTION_WORDS" envDefault:"600"`
	DefaultTemplate     string  `env:"DEFAULT_TEMPLATE" envDefault:"公告模板"`
	// WordCountDiscipline is "ceiling" (must not exceed) or "floor" (must reach at least).
	WordCountDiscipline string  `env:"WORD_COUNT_DISCIPLINE" envDefault:"ceiling"`
	Temperature         float64 `env:"TEMPERATURE" envDefault:"0.6"`

	OutlineTimeout   time.Duration `env:"OUTLINE_TIMEOUT" envDefault:"60s"`
	TransformTimeout time.Duration `env:"TRANSFORM_TIMEOUT" envDefault:"30s"`
	FullTimeout      time.Duration `env:"FULL_TIMEOUT" envDefault:"120s"`
	SectionTimeout   time.Duration `env:"SECTION_TIMEOUT" envDefault:"60s"`
	RetrievalTimeout time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"15s"`
}

type StorageConfig struct {
	DataRoot string `env:"DATA_ROOT" envDefault:"data/users"`
}

// ExportConfig controls document export rendering.
type ExportConfig struct {
	DOCXFont   string  `env:"DOCX_FONT" envDefault:"SimSun"`
	FontSizePt float64 `env:"FONT_SIZE_PT" envDefault:"12"`
	// PDFFontPaths are tried in order; the first existing TTF is embedded.
	PDFFontPaths []string `env:"PDF_FONT_PATHS" envSeparator:"," envDefault:"ttf/SimSun.ttf,internal/pkg/formatter/ttf/SimSun.ttf,ttf/DejaVuSans.ttf"`
	// UnidocLicenseKey is required for DOCX export and .docx extraction.
	UnidocLicenseKey string `env:"UNIDOC_LICENSE_KEY"`
}

// FileUploadConfig holds reference upload limits
type FileUploadConfig struct {
	MaxFileSize       int64 `env:"MAX_FILE_SIZE" envDefault:"2097152"`
	MaxFileCount      int   `env:"MAX_FILE_COUNT" envDefault:"5"`
	MaxUploadSize     int64 `env:"MAX_UPLOAD_SIZE" envDefault:"12582912"`
	MaxReferenceChars int   `env:"MAX_REFERENCE_CHARS" envDefault:"8000"`
}

const (
	DisciplineCeiling = "ceiling"
	DisciplineFloor   = "floor"
)

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.Environment = *envFlag

	return cfg, nil
}

// Parse reads the configuration from the current process environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.LLMConnectorCfg.Url = normalizeBaseURL(cfg.LLMConnectorCfg.Url, "https://api.siliconflow.cn")
	cfg.KnowledgeConnectorCfg.Url = normalizeBaseURL(cfg.KnowledgeConnectorCfg.Url, "http://127.0.0.1:11014")
	cfg.GenerationCfg.WordCountDiscipline = strings.ToLower(strings.TrimSpace(cfg.GenerationCfg.WordCountDiscipline))

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	gen := cfg.GenerationCfg
	if gen.TokenMultiplier <= 0 {
		errors = append(errors, fmt.Sprintf("GENERATION_TOKEN_MULTIPLIER must be positive, got %v", gen.TokenMultiplier))
	}
	if gen.MinTokens < 1 || gen.MinTokens > gen.MaxSectionTokens || gen.MinTokens > gen.MaxFullTokens {
		errors = append(errors, fmt.Sprintf("GENERATION_MIN_TOKENS must be between 1 and the token ceilings, got %d", gen.MinTokens))
	}
	if gen.MinWordCount < 1 {
		errors = append(errors, fmt.Sprintf("GENERATION_MIN_WORD_COUNT must be positive, got %d", gen.MinWordCount))
	}
	if gen.WordCountDiscipline != DisciplineCeiling && gen.WordCountDiscipline != DisciplineFloor {
		errors = append(errors, fmt.Sprintf("GENERATION_WORD_COUNT_DISCIPLINE must be %q or %q, got %q", DisciplineCeiling, DisciplineFloor, gen.WordCountDiscipline))
	}
	if gen.SectionTimeout > gen.FullTimeout {
		errors = append(errors, fmt.Sprintf("GENERATION_SECTION_TIMEOUT (%s) must not exceed GENERATION_FULL_TIMEOUT (%s)", gen.SectionTimeout, gen.FullTimeout))
	}

	if cfg.RequestTimeout < gen.OutlineTimeout || cfg.RequestTimeout < gen.TransformTimeout {
		errors = append(errors, fmt.Sprintf("REQUEST_TIMEOUT (%s) must cover GENERATION_OUTLINE_TIMEOUT and GENERATION_TRANSFORM_TIMEOUT", cfg.RequestTimeout))
	}

	kn := cfg.KnowledgeConnectorCfg
	if kn.MaxTopK < 1 || kn.TopK < 1 || kn.TopK > kn.MaxTopK {
		errors = append(errors, fmt.Sprintf("KNOWLEDGE_TOP_K must be between 1 and KNOWLEDGE_MAX_TOP_K(%d), got %d", kn.MaxTopK, kn.TopK))
	}

	if cfg.ExportCfg.FontSizePt <= 0 {
		errors = append(errors, fmt.Sprintf("EXPORT_FONT_SIZE_PT must be positive, got %v", cfg.ExportCfg.FontSizePt))
	}

	if cfg.FileUploadCfg.MaxFileCount < 1 {
		errors = append(errors, fmt.Sprintf("FILE_UPLOAD_MAX_FILE_COUNT must be positive, got %d", cfg.FileUploadCfg.MaxFileCount))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// normalizeBaseURL trims trailing slashes and a trailing /v1 so endpoint paths
// can always be written as /v1/...
func normalizeBaseURL(raw, fallback string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		u = fallback
	}
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/v1")
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
