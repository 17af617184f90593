package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

const (
	maxBodyBytes = 1 << 20
	minTextChars = 200
)

// LocalScraper fetches HTML directly. It costs nothing, so it runs first;
// blocked or empty pages fall through to the hosted scrapers.
type LocalScraper struct {
	client    *http.Client
	userAgent string
}

// NewLocalScraper creates a LocalScraper with the given request timeout.
func NewLocalScraper(timeout time.Duration) *LocalScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "Mozilla/5.0 (compatible; FundingBot/1.0)",
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}
	if bt := DetectBlock(resp, body); bt != BlockNone {
		return nil, eris.Errorf("local_http: blocked (%s)", bt)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	title, text, err := ExtractText(string(body), targetURL)
	if err != nil {
		return nil, err
	}
	if len(text) < minTextChars {
		return nil, eris.New("local_http: page has too little text")
	}

	return &Page{
		URL:        targetURL,
		Title:      title,
		Text:       text,
		HTML:       string(body),
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
	}, nil
}

var (
	spaceRe   = regexp.MustCompile(`[ \t\f\r]+`)
	newlineRe = regexp.MustCompile(`\n\s*\n+`)
)

// ExtractText returns the title and visible text of an HTML document. Chrome
// (scripts, navigation, headers, footers) is dropped; when what remains is
// thin, the readability article text is used instead.
func ExtractText(html, pageURL string) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", eris.Wrap(err, "local_http: parse html")
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}

	doc.Find("script, style, noscript, nav, header, footer, iframe, svg").Remove()
	var sb strings.Builder
	doc.Find("h1, h2, h3, h4, p, li, td, blockquote").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			sb.WriteString(t)
			sb.WriteString("\n\n")
		}
	})
	text = collapse(sb.String())
	if text == "" {
		text = collapse(doc.Find("body").Text())
	}

	if len(text) < minTextChars {
		if article, ok := readabilityText(html, pageURL); ok && len(article) > len(text) {
			text = article
		}
	}
	return title, text, nil
}

func readabilityText(html, pageURL string) (string, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", false
	}
	text := collapse(article.TextContent)
	return text, text != ""
}

func collapse(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
