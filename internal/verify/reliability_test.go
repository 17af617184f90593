package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReliabilityLookup(t *testing.T) {
	t.Parallel()
	table := DefaultReliability(0.6)

	tests := []struct {
		url       string
		wantScore float64
		wantKnown bool
	}{
		{"https://techcrunch.com/2026/01/01/acme-raises", 0.90, true},
		{"https://www.reuters.com/tech/acme", 0.95, true},
		{"https://news.bloomberg.com/a", 0.95, true},
		{"https://TechCrunch.com/x", 0.90, true},
		{"https://random-blog.io/post", 0.6, false},
		{"not a url", 0.6, false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			score, known := table.Lookup(tt.url)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestLoadReliability(t *testing.T) {
	t.Parallel()

	table, err := LoadReliability("", 0.6)
	require.NoError(t, err)
	assert.Equal(t, DefaultReliability(0.6).Domains, table.Domains)

	dir := t.TempDir()
	path := filepath.Join(dir, "reliability.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reliability:\n  Example.com: 0.55\n  techcrunch.com: 0.5\nstages:\n  seed: Seed\n"), 0o644))

	table, err = LoadReliability(path, 0.6)
	require.NoError(t, err)
	score, known := table.Lookup("https://example.com/a")
	assert.True(t, known)
	assert.InDelta(t, 0.55, score, 1e-9)
	score, _ = table.Lookup("https://techcrunch.com/a")
	assert.InDelta(t, 0.5, score, 1e-9)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("reliability:\n  example.com: 1.5\n"), 0o644))
	_, err = LoadReliability(bad, 0.6)
	assert.Error(t, err)

	_, err = LoadReliability(filepath.Join(dir, "missing.yaml"), 0.6)
	assert.Error(t, err)
}

func TestKeywordMatcher(t *testing.T) {
	t.Parallel()
	k := newKeywordMatcher(fundingKeywords)

	assert.True(t, k.matchAny("Acme RAISES $12M"))
	assert.True(t, k.matchAny("a new Series A round"))
	assert.True(t, k.matchAny("strategic investment from Foo"))
	assert.False(t, k.matchAny("Acme launches a product"))
}
