// Package scrape fetches page content for corroborating sources and company
// websites, falling back across scrapers when a site blocks plain HTTP.
package scrape

import (
	"context"
)

// Page is fetched page content.
type Page struct {
	URL        string
	Title      string
	Text       string
	HTML       string // raw markup, only set by scrapers that see it
	StatusCode int
	Source     string
}

// Scraper fetches a single URL.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}

// Fetcher returns page content for a URL. Chain implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}
