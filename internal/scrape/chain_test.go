package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/pkg/firecrawl"
	"github.com/sells-group/funding-cli/pkg/jina"
	jinamocks "github.com/sells-group/funding-cli/pkg/jina/mocks"
)

type stubScraper struct {
	name     string
	page     *Page
	err      error
	calls    int
	disabled bool
}

func (s *stubScraper) Name() string           { return s.name }
func (s *stubScraper) Supports(_ string) bool { return !s.disabled }
func (s *stubScraper) Scrape(_ context.Context, u string) (*Page, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p := *s.page
	p.URL = u
	return &p, nil
}

func TestChain_FallsThrough(t *testing.T) {
	t.Parallel()

	first := &stubScraper{name: "local_http", err: errors.New("blocked")}
	skipped := &stubScraper{name: "jina", disabled: true}
	last := &stubScraper{name: "firecrawl", page: &Page{Text: "content", Source: "firecrawl"}}

	c := NewChain(nil, first, skipped, last)
	page, err := c.Fetch(context.Background(), "https://techcrunch.com/acme")
	require.NoError(t, err)
	assert.Equal(t, "firecrawl", page.Source)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, skipped.calls)
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()

	c := NewChain(nil, &stubScraper{name: "a", err: errors.New("nope")})
	_, err := c.Fetch(context.Background(), "https://example.com/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all scrapers failed")
}

func TestChain_SkipsBinaryAndInvalid(t *testing.T) {
	t.Parallel()

	s := &stubScraper{name: "a", page: &Page{}}
	c := NewChain(resilience.NewGate("fetch", resilience.GateConfig{}), s)

	for _, u := range []string{"https://example.com/deck.pdf", "ftp://example.com/x", "not a url"} {
		_, err := c.Fetch(context.Background(), u)
		assert.Error(t, err, u)
	}
	assert.Equal(t, 0, s.calls)
}

func TestJinaAdapter(t *testing.T) {
	t.Parallel()

	jc := jinamocks.NewMockClient(t)
	jc.On("Read", mock.Anything, "https://reuters.com/acme").Return(&jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{Title: "Acme", Content: strings.Repeat("Acme Cyber raised funding. ", 10)},
	}, nil).Once()

	page, err := NewJinaAdapter(jc).Scrape(context.Background(), "https://reuters.com/acme")
	require.NoError(t, err)
	assert.Equal(t, "jina", page.Source)
	assert.Equal(t, "https://reuters.com/acme", page.URL)
}

func TestJinaAdapter_BreakerOpens(t *testing.T) {
	t.Parallel()

	jc := jinamocks.NewMockClient(t)
	jc.On("Read", mock.Anything, mock.Anything).Return(&jina.ReadResponse{Code: 200, Data: jina.ReadData{Content: "Just a moment"}}, nil).Times(3)

	a := NewJinaAdapter(jc)
	for i := 0; i < 3; i++ {
		_, err := a.Scrape(context.Background(), "https://x.com")
		require.Error(t, err)
	}
	assert.False(t, a.Supports("https://x.com"))
}

func TestNeedsFallback(t *testing.T) {
	t.Parallel()

	assert.True(t, needsFallback(nil))
	assert.True(t, needsFallback(&jina.ReadResponse{Code: 451}))
	assert.True(t, needsFallback(&jina.ReadResponse{Data: jina.ReadData{Content: "short"}}))
	assert.True(t, needsFallback(&jina.ReadResponse{Data: jina.ReadData{Content: "Access denied. " + strings.Repeat("x", 200)}}))
	assert.False(t, needsFallback(&jina.ReadResponse{Data: jina.ReadData{Content: strings.Repeat("real article text ", 20)}}))
}

type stubFirecrawl struct {
	resp *firecrawl.ScrapeResponse
	err  error
}

func (s stubFirecrawl) Scrape(context.Context, firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	return s.resp, s.err
}

func TestFirecrawlAdapter(t *testing.T) {
	t.Parallel()

	a := NewFirecrawlAdapter(stubFirecrawl{resp: &firecrawl.ScrapeResponse{
		Success: true,
		Data:    firecrawl.PageData{Markdown: "# Acme", Title: "Acme", StatusCode: 200},
	}})
	page, err := a.Scrape(context.Background(), "https://acmecyber.com")
	require.NoError(t, err)
	assert.Equal(t, "https://acmecyber.com", page.URL)
	assert.Equal(t, "# Acme", page.Text)

	empty := NewFirecrawlAdapter(stubFirecrawl{resp: &firecrawl.ScrapeResponse{Success: true}})
	_, err = empty.Scrape(context.Background(), "https://acmecyber.com")
	assert.Error(t, err)

	failing := NewFirecrawlAdapter(stubFirecrawl{err: errors.New("402")})
	_, err = failing.Scrape(context.Background(), "https://acmecyber.com")
	assert.Error(t, err)
}
