package cost

import (
	"sync"

	"go.uber.org/zap"
)

// Totals is a snapshot of tracked usage.
type Totals struct {
	InferenceCalls    int     `json:"inference_calls"`
	InputTokens       int     `json:"input_tokens"`
	OutputTokens      int     `json:"output_tokens"`
	Searches          int     `json:"searches"`
	PerplexityQueries int     `json:"perplexity_queries"`
	FirecrawlScrapes  int     `json:"firecrawl_scrapes"`
	USD               float64 `json:"usd"`
}

// Tracker accumulates spend across a run. Safe for concurrent use; a nil
// Tracker discards everything.
type Tracker struct {
	calc *Calculator

	mu     sync.Mutex
	totals Totals
}

// NewTracker creates a Tracker pricing with calc.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{calc: calc}
}

// Inference records one inference call.
func (t *Tracker) Inference(model string, input, output, cacheWrite, cacheRead int) {
	if t == nil {
		return
	}
	usd := t.calc.Claude(model, input, output, cacheWrite, cacheRead)
	t.mu.Lock()
	t.totals.InferenceCalls++
	t.totals.InputTokens += input
	t.totals.OutputTokens += output
	t.totals.USD += usd
	t.mu.Unlock()
	zap.L().Debug("cost attribution",
		zap.String("model", model),
		zap.Int("input_tokens", input),
		zap.Int("output_tokens", output),
		zap.Float64("estimated_cost_usd", usd),
	)
}

// Search records one web search.
func (t *Tracker) Search() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.totals.Searches++
	t.totals.USD += t.calc.JinaSearch()
	t.mu.Unlock()
}

// Perplexity records one Perplexity query.
func (t *Tracker) Perplexity() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.totals.PerplexityQueries++
	t.totals.USD += t.calc.PerplexityQuery()
	t.mu.Unlock()
}

// Firecrawl records one Firecrawl scrape.
func (t *Tracker) Firecrawl() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.totals.FirecrawlScrapes++
	t.totals.USD += t.calc.FirecrawlScrape()
	t.mu.Unlock()
}

// Totals returns a snapshot.
func (t *Tracker) Totals() Totals {
	if t == nil {
		return Totals{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}
