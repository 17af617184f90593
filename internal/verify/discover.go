package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/pkg/jina"
)

// buildQueries returns up to limit search queries for corroborating a draft.
func buildQueries(d model.FundingDraft, limit int) []string {
	company := strings.TrimSpace(d.CompanyName)
	if company == "" || limit <= 0 {
		return nil
	}

	var queries []string
	first := []string{fmt.Sprintf("%q", company)}
	if d.Amount > 0 {
		first = append(first, formatAmount(d.Amount))
	}
	if d.FundingStage != "" {
		first = append(first, d.FundingStage)
	}
	queries = append(queries, strings.Join(first, " "))

	stage := d.FundingStage
	if stage == "" {
		stage = "funding"
	}
	queries = append(queries, fmt.Sprintf("%s raises %s", company, stage))

	if d.LeadInvestor != "" {
		queries = append(queries, fmt.Sprintf("%s invests in %s", d.LeadInvestor, company))
	}
	queries = append(queries, fmt.Sprintf("%s funding announcement", company))

	if len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

var (
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
	thousand = decimal.New(1, 3)
)

// formatAmount renders an amount the way announcements write it: $12M,
// $5.5B.
func formatAmount(amount int64) string {
	d := decimal.NewFromInt(amount)
	switch {
	case d.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).Round(1).String() + "B"
	case d.GreaterThanOrEqual(million):
		return "$" + d.Div(million).Round(1).String() + "M"
	case d.GreaterThanOrEqual(thousand):
		return "$" + d.Div(thousand).Round(1).String() + "K"
	default:
		return "$" + d.String()
	}
}

// discover searches for corroborating sources. Results must come from a
// domain in the reliability table, and their content must mention the
// company and a funding keyword. Search failures are logged and skipped.
func (v *Verifier) discover(ctx context.Context, d model.FundingDraft) []model.VerificationSource {
	log := zap.L().With(zap.String("component", "verify"), zap.String("company", d.CompanyName))
	queries := buildQueries(d, v.cfg.MaxQueries)
	company := strings.ToLower(strings.TrimSpace(d.CompanyName))

	var sources []model.VerificationSource
	seen := make(map[string]bool)
	for qi, q := range queries {
		if len(sources) >= v.cfg.MaxSources {
			break
		}
		if qi > 0 {
			if err := v.sleep(ctx, v.queryDelay); err != nil {
				break
			}
		}

		resp, err := resilience.Call(ctx, v.searchGate, func(ctx context.Context) (*jina.SearchResponse, error) {
			return v.search.Search(ctx, q, jina.WithCount(v.cfg.ResultsPerQuery))
		})
		v.tracker.Search()
		if err != nil {
			log.Warn("verify: search failed", zap.String("query", q), zap.Error(err))
			continue
		}

		for _, r := range resp.Data {
			if len(sources) >= v.cfg.MaxSources {
				break
			}
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true

			reliability, known := v.reliability.Lookup(r.URL)
			if !known {
				continue
			}

			title, content := v.pageContent(ctx, r)
			lower := strings.ToLower(content)
			if !strings.Contains(lower, company) || !v.keywords.matchAny(lower) {
				continue
			}
			sources = append(sources, model.VerificationSource{
				URL:         r.URL,
				Title:       title,
				Content:     content,
				Reliability: reliability,
			})
		}
	}

	log.Debug("verify: source discovery complete",
		zap.Int("queries", len(queries)),
		zap.Int("sources", len(sources)),
	)
	return sources
}

// pageContent fetches the full page, falling back to the search snippet
// when the fetch fails.
func (v *Verifier) pageContent(ctx context.Context, r jina.SearchResult) (title, content string) {
	title, content = r.Title, r.Content
	if content == "" {
		content = r.Description
	}
	if v.fetcher == nil {
		return title, content
	}
	page, err := v.fetcher.Fetch(ctx, r.URL)
	if err != nil || page == nil || strings.TrimSpace(page.Text) == "" {
		zap.L().Debug("verify: page fetch failed, using search snippet",
			zap.String("url", r.URL),
			zap.Error(err),
		)
		return title, content
	}
	if page.Title != "" {
		title = page.Title
	}
	return title, page.Text
}
