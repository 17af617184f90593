package verify

import (
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ReliabilityTable maps a publisher domain to a trust weight in [0,1].
type ReliabilityTable struct {
	Domains map[string]float64
	// Default is reported for domains missing from the table.
	Default float64
}

// DefaultReliability returns the built-in domain table.
func DefaultReliability(defaultScore float64) ReliabilityTable {
	return ReliabilityTable{
		Default: defaultScore,
		Domains: map[string]float64{
			"reuters.com":        0.95,
			"bloomberg.com":      0.95,
			"wsj.com":            0.95,
			"sec.gov":            0.95,
			"ft.com":             0.90,
			"techcrunch.com":     0.90,
			"cnbc.com":           0.90,
			"pitchbook.com":      0.90,
			"theinformation.com": 0.90,
			"forbes.com":         0.85,
			"fortune.com":        0.85,
			"axios.com":          0.85,
			"venturebeat.com":    0.85,
			"crunchbase.com":     0.85,
			"businesswire.com":   0.80,
			"prnewswire.com":     0.80,
			"globenewswire.com":  0.80,
			"geekwire.com":       0.80,
			"siliconangle.com":   0.80,
			"securityweek.com":   0.80,
			"darkreading.com":    0.80,
			"finsmes.com":        0.75,
			"finextra.com":       0.75,
			"eu-startups.com":    0.75,
			"tech.eu":            0.75,
			"sifted.eu":          0.75,
			"prweb.com":          0.70,
			"accesswire.com":     0.70,
		},
	}
}

// LoadReliability merges the "reliability" map of a YAML file over the
// default table. An empty path returns the defaults.
func LoadReliability(path string, defaultScore float64) (ReliabilityTable, error) {
	table := DefaultReliability(defaultScore)
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return table, eris.Wrapf(err, "verify: read reliability file %s", path)
	}
	var doc struct {
		Reliability map[string]float64 `yaml:"reliability"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return table, eris.Wrapf(err, "verify: parse reliability file %s", path)
	}
	for domain, score := range doc.Reliability {
		if score < 0 || score > 1 {
			return table, eris.Errorf("verify: reliability for %s out of range: %v", domain, score)
		}
		table.Domains[strings.ToLower(domain)] = score
	}
	return table, nil
}

// Lookup returns the reliability of the URL's domain. Subdomains inherit
// their parent's score. ok is false for unlisted domains, which score
// Default.
func (t ReliabilityTable) Lookup(rawURL string) (score float64, ok bool) {
	host := hostOf(rawURL)
	for host != "" {
		if s, found := t.Domains[host]; found {
			return s, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return t.Default, false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
