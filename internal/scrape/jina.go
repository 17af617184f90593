package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/pkg/jina"
)

// JinaAdapter reads pages through Jina Reader. A breaker skips Jina after
// repeated failures so the chain falls through to the next scraper quickly.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
}

// NewJinaAdapter wraps a Jina client. Three consecutive failures open the
// breaker for a minute.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 3, CoolDown: time.Minute}),
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports reports false while the breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.BreakerOpen
}

func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	return resilience.Execute(ctx, j.breaker, func(ctx context.Context) (*Page, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, eris.New("jina: response needs fallback")
		}
		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &Page{
			URL:        pageURL,
			Title:      resp.Data.Title,
			Text:       resp.Data.Content,
			StatusCode: 200,
			Source:     j.Name(),
		}, nil
	})
}

var jinaChallengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// needsFallback reports whether a reader response is empty or a challenge
// page rather than real content.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil || (resp.Code != 0 && resp.Code != 200) {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < 100 {
		return true
	}
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range jinaChallengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
