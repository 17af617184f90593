package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<html><head><title>Acme Cyber raises $12M Series A</title></head>
<body><nav>Home | News | Contact</nav>
<header>TechWire</header>
<h1>Acme Cyber raises $12M Series A led by Foo Ventures</h1>
<p>Austin-based Acme Cyber announced today that it has raised $12 million in Series A funding led by Foo Ventures, with participation from Bar Capital.</p>
<p>The company builds endpoint security tooling for small businesses and plans to use the investment to expand its engineering team.</p>
<script>var tracking = "should not appear";</script>
<footer>Copyright 2026 TechWire</footer></body></html>`

func TestLocalScraper_ExtractsArticle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page, err := NewLocalScraper(5 * time.Second).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "local_http", page.Source)
	assert.Equal(t, "Acme Cyber raises $12M Series A", page.Title)
	assert.Contains(t, page.Text, "raised $12 million in Series A funding")
	assert.NotContains(t, page.Text, "Home | News")
	assert.NotContains(t, page.Text, "Copyright 2026")
	assert.NotContains(t, page.Text, "tracking")
	assert.Contains(t, page.HTML, "<nav>")
}

func TestLocalScraper_Cloudflare(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(time.Second).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked (cloudflare)")
}

func TestLocalScraper_ThinPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Hi</p></body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(time.Second).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too little text")
}

func TestLocalScraper_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(strings.Repeat("<p>missing</p>", 50)))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(time.Second).Scrape(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestExtractText_OGTitleFallback(t *testing.T) {
	t.Parallel()

	title, text, err := ExtractText(`<html><head><meta property="og:title" content="OG Title"></head><body><p>Body text</p></body></html>`, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "OG Title", title)
	assert.Contains(t, text, "Body text")
}
