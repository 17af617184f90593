package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Queue.Driver)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, 50, cfg.Workflow.MaxBatchSize)
	assert.InDelta(t, 0.75, cfg.Workflow.ConfidenceThreshold, 0.001)
	assert.InDelta(t, 0.75, cfg.Verify.ConfidenceThreshold, 0.001)
	assert.InDelta(t, 0.7, cfg.Verify.ConsensusWeight, 0.001)
	assert.InDelta(t, 0.3, cfg.Verify.ReliabilityWeight, 0.001)
	assert.InDelta(t, 0.95, cfg.Verify.ConfidenceCap, 0.001)
	assert.Equal(t, 2, cfg.Verify.MinSources)
	assert.Equal(t, 10, cfg.Verify.MaxSources)
	assert.Equal(t, 4, cfg.Verify.MaxQueries)
	assert.Equal(t, 2000, cfg.Verify.SourceContentChars)
	assert.InDelta(t, 0.60, cfg.Verify.DefaultReliability, 0.001)
	assert.Equal(t, 4, cfg.Verify.ReextractConcurrency)
	assert.Equal(t, int64(1), cfg.Rate.MaxInFlight)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSecs)
	assert.InDelta(t, 0.005, cfg.Pricing.Perplexity.PerQuery, 1e-9)
	assert.NotEmpty(t, cfg.Pricing.Anthropic)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
queue:
  driver: sqlite
  database_url: queue.db
verify:
  min_sources: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Queue.Driver)
	assert.Equal(t, "queue.db", cfg.Queue.DatabaseURL)
	assert.Equal(t, 3, cfg.Verify.MinSources)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.95, cfg.Verify.ConfidenceCap, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
queue:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FUNDING_QUEUE_DRIVER", "redis")
	t.Setenv("FUNDING_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "redis", cfg.Queue.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("FUNDING_SERVER_PORT", "3000")
	t.Setenv("FUNDING_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	// Missing file is fine.
	require.NoError(t, LoadDotEnv())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FUNDING_JINA_KEY=jina-from-dotenv\n"), 0644))
	t.Setenv("FUNDING_JINA_KEY", "")
	require.NoError(t, os.Unsetenv("FUNDING_JINA_KEY"))
	require.NoError(t, LoadDotEnv())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "jina-from-dotenv", cfg.Jina.Key)
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	chdirTemp(t)

	env := map[string]string{
		"FUNDING_ANTHROPIC_KEY":        "anthropic",
		"FUNDING_JINA_KEY":             "jina",
		"FUNDING_PERPLEXITY_KEY":       "perplexity",
		"FUNDING_FIRECRAWL_KEY":        "firecrawl",
		"FUNDING_GOOGLE_KEY":           "google",
		"FUNDING_NOTION_TOKEN":         "notion",
		"FUNDING_NOTION_REVIEW_DB":     "db-123",
		"FUNDING_SALESFORCE_CLIENT_ID": "client",
		"FUNDING_SALESFORCE_USERNAME":  "user@example.com",
		"FUNDING_SALESFORCE_KEY_PATH":  "sf.pem",
		"FUNDING_QUEUE_DATABASE_URL":   "postgres://localhost/funding",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Anthropic.Key)
	assert.Equal(t, "jina", cfg.Jina.Key)
	assert.Equal(t, "perplexity", cfg.Perplexity.Key)
	assert.Equal(t, "firecrawl", cfg.Firecrawl.Key)
	assert.Equal(t, "google", cfg.Google.Key)
	assert.Equal(t, "notion", cfg.Notion.Token)
	assert.Equal(t, "db-123", cfg.Notion.ReviewDB)
	assert.True(t, cfg.Salesforce.Enabled())
	assert.Equal(t, "postgres://localhost/funding", cfg.Queue.DatabaseURL)
	assert.NoError(t, cfg.Validate(ModeRun))
	assert.NoError(t, cfg.Validate(ModePush))
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults Validate looks at.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Queue.Driver = "memory"
	cfg.Workflow.MaxBatchSize = 50
	cfg.Workflow.ConfidenceThreshold = 0.75
	cfg.Verify.ConfidenceThreshold = 0.75
	cfg.Verify.ConfidenceCap = 0.95
	cfg.Verify.ConsensusWeight = 0.7
	cfg.Verify.ReliabilityWeight = 0.3
	cfg.Verify.MinSources = 2
	cfg.Verify.MaxSources = 10
	cfg.Verify.MaxQueries = 4
	cfg.Verify.ResultsPerQuery = 5
	cfg.Verify.SourceContentChars = 2000
	cfg.Verify.DefaultReliability = 0.6
	cfg.Verify.DraftReliability = 0.6
	cfg.Verify.ReextractConcurrency = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate(ModeRun)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "jina.key is required")

	cfg.Anthropic.Key = "sk-ant"
	cfg.Jina.Key = "jina"
	assert.NoError(t, cfg.Validate(ModeRun))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant"
	cfg.Jina.Key = "jina"
	cfg.Server.Port = 0

	err := cfg.Validate(ModeServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidatePush(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate(ModePush)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.review_db is required")

	cfg.Notion.Token = "ntn"
	cfg.Notion.ReviewDB = "db"
	assert.NoError(t, cfg.Validate(ModePush))
}

func TestValidateQueueDriver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		url     string
		wantErr string
	}{
		{name: "memory", driver: "memory"},
		{name: "sqlite", driver: "sqlite"},
		{name: "redis", driver: "redis"},
		{name: "postgres with url", driver: "postgres", url: "postgres://localhost/q"},
		{name: "postgres without url", driver: "postgres", wantErr: "queue.database_url is required"},
		{name: "unknown", driver: "mongo", wantErr: "queue.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Queue.Driver = tt.driver
			cfg.Queue.DatabaseURL = tt.url
			err := cfg.Validate(ModeQueue)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateThresholds(t *testing.T) {
	cfg := validDefaults()
	cfg.Workflow.ConfidenceThreshold = 1.5
	err := cfg.Validate(ModeQueue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow.confidence_threshold must be between 0 and 1")

	cfg = validDefaults()
	cfg.Workflow.MaxBatchSize = 0
	err = cfg.Validate(ModeQueue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow.max_batch_size must be > 0")
}

func TestValidateVerifyRanges(t *testing.T) {
	cfg := validDefaults()
	cfg.Verify.ReliabilityWeight = 0
	cfg.Verify.DraftReliability = 0
	assert.NoError(t, cfg.Validate(ModeQueue))

	cfg.Verify.ReliabilityWeight = 1.2
	cfg.Verify.MaxSources = 0
	cfg.Verify.ReextractConcurrency = -1
	err := cfg.Validate(ModeQueue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify.reliability_weight must be between 0 and 1")
	assert.Contains(t, err.Error(), "verify.max_sources must be > 0")
	assert.Contains(t, err.Error(), "verify.reextract_concurrency must be > 0")
}

func TestLoadKeepsExplicitZeroWeights(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
verify:
  reliability_weight: 0
  draft_reliability: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Verify.ReliabilityWeight)
	assert.Zero(t, cfg.Verify.DraftReliability)
	assert.InDelta(t, 0.7, cfg.Verify.ConsensusWeight, 0.001)
	assert.NoError(t, cfg.Validate(ModeQueue))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestSalesforceEnabled(t *testing.T) {
	assert.False(t, SalesforceConfig{}.Enabled())
	assert.True(t, SalesforceConfig{ClientID: "id", Username: "u", KeyPath: "k.pem"}.Enabled())
}
