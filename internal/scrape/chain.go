package scrape

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/resilience"
)

// skippedExtensions are binary or non-article resources.
var skippedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".zip": true, ".mp4": true, ".mp3": true, ".xlsx": true, ".docx": true,
}

// Chain tries scrapers in order and returns the first success. All attempts
// for one URL share the fetch gate, so only one page fetch is in flight per
// gate at a time.
type Chain struct {
	scrapers []Scraper
	gate     *resilience.Gate
}

// NewChain creates a Chain. gate may be nil.
func NewChain(gate *resilience.Gate, scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers, gate: gate}
}

// Fetch implements Fetcher.
func (c *Chain) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	if reason := skipReason(targetURL); reason != "" {
		return nil, eris.Errorf("scrape: skipping %s: %s", targetURL, reason)
	}
	return resilience.Call(ctx, c.gate, func(ctx context.Context) (*Page, error) {
		return c.tryAll(ctx, targetURL)
	})
}

func (c *Chain) tryAll(ctx context.Context, targetURL string) (*Page, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		page, err := s.Scrape(ctx, targetURL)
		if err == nil && page != nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no scraper supports %s", targetURL)
}

func skipReason(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid url"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "unsupported scheme"
	}
	if skippedExtensions[strings.ToLower(path.Ext(u.Path))] {
		return "binary resource"
	}
	return ""
}
