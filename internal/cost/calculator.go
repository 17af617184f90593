// Package cost attributes spend to the external services used by the
// funding pipeline.
package cost

// Rates holds per-provider pricing.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaRate             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
	Firecrawl  FirecrawlRate        `yaml:"firecrawl" mapstructure:"firecrawl"`
}

// ModelRate is per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// JinaRate is Jina pricing.
type JinaRate struct {
	PerMTok   float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
	PerSearch float64 `yaml:"per_search" mapstructure:"per_search"`
}

// PerplexityRate is Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// FirecrawlRate is Firecrawl plan pricing; a scrape costs one credit.
type FirecrawlRate struct {
	PlanMonthly     float64 `yaml:"plan_monthly" mapstructure:"plan_monthly"`
	CreditsIncluded float64 `yaml:"credits_included" mapstructure:"credits_included"`
}

// Calculator prices API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude prices one inference call. Unknown models cost 0.
func (c *Calculator) Claude(model string, input, output, cacheWrite, cacheRead int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	perTok := func(n int, price float64) float64 { return float64(n) / 1e6 * price }
	return perTok(input, rate.Input) +
		perTok(output, rate.Output) +
		perTok(cacheWrite, rate.Input*rate.CacheWriteMul) +
		perTok(cacheRead, rate.Input*rate.CacheReadMul)
}

// JinaRead prices reader token usage.
func (c *Calculator) JinaRead(tokens int) float64 {
	return float64(tokens) / 1e6 * c.rates.Jina.PerMTok
}

// JinaSearch is the flat cost of one search.
func (c *Calculator) JinaSearch() float64 { return c.rates.Jina.PerSearch }

// PerplexityQuery is the flat cost of one Perplexity query.
func (c *Calculator) PerplexityQuery() float64 { return c.rates.Perplexity.PerQuery }

// FirecrawlScrape is the amortised cost of one scrape credit.
func (c *Calculator) FirecrawlScrape() float64 {
	if c.rates.Firecrawl.CreditsIncluded <= 0 {
		return 0
	}
	return c.rates.Firecrawl.PlanMonthly / c.rates.Firecrawl.CreditsIncluded
}

// DefaultRates returns list pricing for the services the pipeline calls.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		},
		Jina:       JinaRate{PerMTok: 0.02, PerSearch: 0.002},
		Perplexity: PerplexityRate{PerQuery: 0.005},
		Firecrawl:  FirecrawlRate{PlanMonthly: 19.00, CreditsIncluded: 3000},
	}
}
