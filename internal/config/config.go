package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/funding-cli/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Verify     VerifyConfig     `yaml:"verify" mapstructure:"verify"`
	Workflow   WorkflowConfig   `yaml:"workflow" mapstructure:"workflow"`
	Rate       RateConfig       `yaml:"rate" mapstructure:"rate"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds inference service settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// FirecrawlConfig holds Firecrawl API settings (fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GoogleConfig holds Google Places settings. Places lookup is skipped
// without a key.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// Enabled reports whether enough is set to attempt a connection.
func (s SalesforceConfig) Enabled() bool {
	return s.ClientID != "" && s.Username != "" && s.KeyPath != ""
}

// NotionConfig holds the review board settings.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// VerifyConfig tunes source discovery and confidence scoring.
type VerifyConfig struct {
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	ConsensusWeight      float64 `yaml:"consensus_weight" mapstructure:"consensus_weight"`
	ReliabilityWeight    float64 `yaml:"reliability_weight" mapstructure:"reliability_weight"`
	ConfidenceCap        float64 `yaml:"confidence_cap" mapstructure:"confidence_cap"`
	MinSources           int     `yaml:"min_sources" mapstructure:"min_sources"`
	DiscrepancyConsensus float64 `yaml:"discrepancy_consensus" mapstructure:"discrepancy_consensus"`
	UseTopConsensus      float64 `yaml:"use_top_consensus" mapstructure:"use_top_consensus"`
	MaxSources           int     `yaml:"max_sources" mapstructure:"max_sources"`
	MaxQueries           int     `yaml:"max_queries" mapstructure:"max_queries"`
	ResultsPerQuery      int     `yaml:"results_per_query" mapstructure:"results_per_query"`
	SourceContentChars   int     `yaml:"source_content_chars" mapstructure:"source_content_chars"`
	DefaultReliability   float64 `yaml:"default_reliability" mapstructure:"default_reliability"`
	DraftReliability     float64 `yaml:"draft_reliability" mapstructure:"draft_reliability"`
	ReliabilityFile      string  `yaml:"reliability_file" mapstructure:"reliability_file"`
	ReextractConcurrency int     `yaml:"reextract_concurrency" mapstructure:"reextract_concurrency"`
	QueryDelayMs         int     `yaml:"query_delay_ms" mapstructure:"query_delay_ms"`
}

// WorkflowConfig configures batch runs.
type WorkflowConfig struct {
	MaxBatchSize        int     `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// RateConfig sets per-dependency request rates. Zero disables limiting.
type RateConfig struct {
	InferenceRPS float64 `yaml:"inference_rps" mapstructure:"inference_rps"`
	SearchRPS    float64 `yaml:"search_rps" mapstructure:"search_rps"`
	FetchRPS     float64 `yaml:"fetch_rps" mapstructure:"fetch_rps"`
	MaxInFlight  int64   `yaml:"max_in_flight" mapstructure:"max_in_flight"`
	ItemDelayMs  int     `yaml:"item_delay_ms" mapstructure:"item_delay_ms"`
}

// RetryConfig configures retry with exponential backoff.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures per-service circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// HTTPConfig configures outbound HTTP clients.
type HTTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// QueueConfig selects the verification queue backend.
type QueueConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisKey    string `yaml:"redis_key" mapstructure:"redis_key"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Modes accepted by Validate.
const (
	ModeRun   = "run"
	ModeServe = "serve"
	ModePush  = "push"
	ModeQueue = "queue"
)

// LoadDotEnv loads .env from the working directory into the process
// environment. A missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "config: load .env")
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUNDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// Viper can't merge env vars into a map default, so the model table
	// falls back wholesale when the file doesn't set one.
	if len(cfg.Pricing.Anthropic) == 0 {
		cfg.Pricing.Anthropic = cost.DefaultRates().Anthropic
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys with no default still need registering or AutomaticEnv
	// won't see them at unmarshal time.
	for _, key := range []string{
		"anthropic.key",
		"jina.key",
		"perplexity.key",
		"firecrawl.key",
		"google.key",
		"notion.token",
		"notion.review_db",
		"salesforce.client_id",
		"salesforce.username",
		"salesforce.key_path",
		"queue.database_url",
		"verify.reliability_file",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

	v.SetDefault("verify.confidence_threshold", 0.75)
	v.SetDefault("verify.consensus_weight", 0.7)
	v.SetDefault("verify.reliability_weight", 0.3)
	v.SetDefault("verify.confidence_cap", 0.95)
	v.SetDefault("verify.min_sources", 2)
	v.SetDefault("verify.discrepancy_consensus", 0.7)
	v.SetDefault("verify.use_top_consensus", 0.5)
	v.SetDefault("verify.max_sources", 10)
	v.SetDefault("verify.max_queries", 4)
	v.SetDefault("verify.results_per_query", 5)
	v.SetDefault("verify.source_content_chars", 2000)
	v.SetDefault("verify.default_reliability", 0.60)
	v.SetDefault("verify.draft_reliability", 0.60)
	v.SetDefault("verify.reextract_concurrency", 4)
	v.SetDefault("verify.query_delay_ms", 0)

	v.SetDefault("workflow.max_batch_size", 50)
	v.SetDefault("workflow.confidence_threshold", 0.75)

	v.SetDefault("rate.inference_rps", 2)
	v.SetDefault("rate.search_rps", 1)
	v.SetDefault("rate.fetch_rps", 2)
	v.SetDefault("rate.max_in_flight", 1)
	v.SetDefault("rate.item_delay_ms", 0)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 10000)

	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 30)

	v.SetDefault("http.timeout_secs", 30)

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_key", "funding:queue")

	v.SetDefault("pricing.jina.per_mtok", 0.02)
	v.SetDefault("pricing.jina.per_search", 0.002)
	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("pricing.firecrawl.plan_monthly", 19.00)
	v.SetDefault("pricing.firecrawl.credits_included", 3000)
}

// Validate checks that the keys a command needs are present and that
// shared settings are in range.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeRun:
		errs = append(errs, c.requireInference()...)
	case ModeServe:
		errs = append(errs, c.requireInference()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case ModePush:
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.ReviewDB == "" {
			errs = append(errs, "notion.review_db is required")
		}
	case ModeQueue:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Queue.Driver {
	case "memory", "sqlite", "redis":
	case "postgres":
		if c.Queue.DatabaseURL == "" {
			errs = append(errs, "queue.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("queue.driver %q is not one of memory, sqlite, postgres, redis", c.Queue.Driver))
	}

	if c.Workflow.MaxBatchSize <= 0 {
		errs = append(errs, "workflow.max_batch_size must be > 0")
	}
	for name, v := range map[string]float64{
		"workflow.confidence_threshold": c.Workflow.ConfidenceThreshold,
		"verify.confidence_threshold":   c.Verify.ConfidenceThreshold,
		"verify.confidence_cap":         c.Verify.ConfidenceCap,
		"verify.consensus_weight":       c.Verify.ConsensusWeight,
		"verify.reliability_weight":     c.Verify.ReliabilityWeight,
		"verify.discrepancy_consensus":  c.Verify.DiscrepancyConsensus,
		"verify.use_top_consensus":      c.Verify.UseTopConsensus,
		"verify.default_reliability":    c.Verify.DefaultReliability,
		"verify.draft_reliability":      c.Verify.DraftReliability,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1", name))
		}
	}

	for name, v := range map[string]int{
		"verify.min_sources":           c.Verify.MinSources,
		"verify.max_sources":           c.Verify.MaxSources,
		"verify.max_queries":           c.Verify.MaxQueries,
		"verify.results_per_query":     c.Verify.ResultsPerQuery,
		"verify.source_content_chars":  c.Verify.SourceContentChars,
		"verify.reextract_concurrency": c.Verify.ReextractConcurrency,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}
	if c.Verify.QueryDelayMs < 0 {
		errs = append(errs, "verify.query_delay_ms must be >= 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) requireInference() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Jina.Key == "" {
		errs = append(errs, "jina.key is required")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
