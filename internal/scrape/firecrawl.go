package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funding-cli/pkg/firecrawl"
)

// FirecrawlAdapter scrapes through Firecrawl. It is the paid last resort.
type FirecrawlAdapter struct {
	client firecrawl.Client
}

// NewFirecrawlAdapter wraps a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client}
}

func (f *FirecrawlAdapter) Name() string           { return "firecrawl" }
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{URL: targetURL, OnlyMainContent: true})
	if err != nil {
		return nil, eris.Wrap(err, "firecrawl: scrape")
	}
	if !resp.Success || strings.TrimSpace(resp.Data.Markdown) == "" {
		return nil, eris.Errorf("firecrawl: no content for %s", targetURL)
	}
	pageURL := resp.Data.URL
	if pageURL == "" {
		pageURL = targetURL
	}
	return &Page{
		URL:        pageURL,
		Title:      resp.Data.Title,
		Text:       resp.Data.Markdown,
		StatusCode: resp.Data.StatusCode,
		Source:     f.Name(),
	}, nil
}
