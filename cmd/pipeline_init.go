package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/cost"
	"github.com/sells-group/funding-cli/internal/extract"
	"github.com/sells-group/funding-cli/internal/metrics"
	"github.com/sells-group/funding-cli/internal/profile"
	"github.com/sells-group/funding-cli/internal/queue"
	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/internal/scrape"
	"github.com/sells-group/funding-cli/internal/verify"
	"github.com/sells-group/funding-cli/internal/workflow"
	anthropicpkg "github.com/sells-group/funding-cli/pkg/anthropic"
	"github.com/sells-group/funding-cli/pkg/firecrawl"
	"github.com/sells-group/funding-cli/pkg/google"
	"github.com/sells-group/funding-cli/pkg/jina"
	"github.com/sells-group/funding-cli/pkg/perplexity"
	sfpkg "github.com/sells-group/funding-cli/pkg/salesforce"
)

// pipelineEnv holds the orchestrator and everything it was built from.
type pipelineEnv struct {
	Orchestrator *workflow.Orchestrator
	Queue        queue.Store
	Gates        *resilience.Gates
	Tracker      *cost.Tracker
	Registry     *prometheus.Registry
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Queue != nil {
		_ = pe.Queue.Close()
	}
}

// newGate builds the gate for one dependency from the rate, retry and
// circuit settings.
func newGate(name string, rps float64) *resilience.Gate {
	return resilience.NewGate(name, resilience.GateConfig{
		RPS:         rps,
		MaxInFlight: cfg.Rate.MaxInFlight,
		Retry:       resilience.NewRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
		Breaker: resilience.BreakerConfig{
			FailureThreshold: cfg.Circuit.FailureThreshold,
			CoolDown:         time.Duration(cfg.Circuit.ResetTimeoutSecs) * time.Second,
		},
	})
}

// initQueue opens the configured queue store.
func initQueue(ctx context.Context) (queue.Store, error) {
	q, err := queue.Open(ctx, cfg.Queue)
	if err != nil {
		return nil, eris.Wrap(err, "open queue")
	}
	zap.L().Debug("queue opened", zap.String("driver", cfg.Queue.Driver))
	return q, nil
}

// initSalesforce connects to Salesforce, or returns nil when it is not
// configured.
func initSalesforce() (sfpkg.Client, error) {
	if !cfg.Salesforce.Enabled() {
		zap.L().Debug("salesforce not configured, structured lookup limited to research")
		return nil, nil
	}
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}
	return sfpkg.Connect(sfpkg.Creds{
		LoginURL:  cfg.Salesforce.LoginURL,
		Username:  cfg.Salesforce.Username,
		ClientID:  cfg.Salesforce.ClientID,
		RSAKeyPEM: string(pemData),
	})
}

// initPipeline builds every client and the orchestrator. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSecs) * time.Second
	httpClient := &http.Client{Timeout: timeout}

	gates := resilience.NewGates()
	inferenceGate := gates.Add(newGate(workflow.DepInference, cfg.Rate.InferenceRPS))
	searchGate := gates.Add(newGate(workflow.DepSearch, cfg.Rate.SearchRPS))
	fetchGate := gates.Add(newGate(workflow.DepFetch, cfg.Rate.FetchRPS))

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	tracker := cost.NewTracker(cost.NewCalculator(cfg.Pricing))

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key, option.WithRequestTimeout(timeout))
	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL), jina.WithHTTPClient(httpClient)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	// Build scrape chain: local fetch → Jina Reader → Firecrawl.
	scrapers := []scrape.Scraper{
		scrape.NewLocalScraper(timeout),
		scrape.NewJinaAdapter(jinaClient),
	}
	if cfg.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL), firecrawl.WithHTTPClient(httpClient))
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(fc))
	}
	chain := scrape.NewChain(fetchGate, scrapers...)

	// Taxonomy and reliability overrides share one YAML file.
	taxonomy, err := extract.LoadTaxonomy(cfg.Verify.ReliabilityFile)
	if err != nil {
		return nil, err
	}
	reliability, err := verify.LoadReliability(cfg.Verify.ReliabilityFile, cfg.Verify.DefaultReliability)
	if err != nil {
		return nil, err
	}

	itemDelay := time.Duration(cfg.Rate.ItemDelayMs) * time.Millisecond
	ex := extract.New(anthropicClient, extract.Config{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		ItemDelay: itemDelay,
	},
		extract.WithGate(inferenceGate),
		extract.WithTaxonomy(taxonomy),
		extract.WithTracker(tracker),
		extract.WithMetrics(m),
	)

	ver := verify.New(cfg.Verify, jinaClient, ex,
		verify.WithFetcher(chain),
		verify.WithReliability(reliability),
		verify.WithSearchGate(searchGate),
		verify.WithTracker(tracker),
		verify.WithMetrics(m),
		verify.WithItemDelay(itemDelay),
	)

	profOpts := []profile.Option{
		profile.WithSearch(jinaClient, searchGate),
		profile.WithFetcher(chain),
		profile.WithDescriber(ex),
		profile.WithTracker(tracker),
		profile.WithMetrics(m),
	}
	sfClient, err := initSalesforce()
	if err != nil {
		return nil, err
	}
	if sfClient != nil {
		profOpts = append(profOpts, profile.WithCRM(sfClient, gates.Add(newGate(workflow.DepCRM, 0))))
	}
	if cfg.Perplexity.Key != "" {
		pplx := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
			perplexity.WithHTTPClient(httpClient),
		)
		profOpts = append(profOpts, profile.WithResearcher(pplx, gates.Add(newGate(workflow.DepResearch, cfg.Rate.SearchRPS))))
	}
	if cfg.Google.Key != "" {
		places := google.NewDirectory(cfg.Google.Key, cfg.Google.BaseURL, httpClient)
		profOpts = append(profOpts, profile.WithPlaces(places, gates.Add(newGate(workflow.DepPlaces, cfg.Rate.SearchRPS))))
	}
	prof := profile.New(profOpts...)

	q, err := initQueue(ctx)
	if err != nil {
		return nil, err
	}

	orch := workflow.New(workflow.Config{
		MaxBatchSize:        cfg.Workflow.MaxBatchSize,
		ConfidenceThreshold: cfg.Workflow.ConfidenceThreshold,
		ProfileDelay:        itemDelay,
	}, ex, ver, prof, q,
		workflow.WithGates(gates),
		workflow.WithTracker(tracker),
		workflow.WithMetrics(m),
	)

	zap.L().Info("pipeline ready",
		zap.Strings("dependencies", gates.Names()),
		zap.String("queue", cfg.Queue.Driver),
		zap.String("model", cfg.Anthropic.Model),
	)

	return &pipelineEnv{
		Orchestrator: orch,
		Queue:        q,
		Gates:        gates,
		Tracker:      tracker,
		Registry:     registry,
	}, nil
}
