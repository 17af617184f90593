package verify

import (
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

var fundingKeywords = []string{"funding", "investment", "raises", "series"}

// keywordMatcher finds funding keywords in a single pass over page text.
type keywordMatcher struct {
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
}

func newKeywordMatcher(keywords []string) *keywordMatcher {
	return &keywordMatcher{matcher: ahocorasick.NewStringMatcher(keywords)}
}

// matchAny reports whether lowered text contains any keyword.
func (k *keywordMatcher) matchAny(text string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.matcher.Match([]byte(strings.ToLower(text)))) > 0
}
