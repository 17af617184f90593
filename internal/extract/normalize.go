package extract

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Taxonomy maps lower-cased synonyms to canonical funding stage and
// technology labels.
type Taxonomy struct {
	Stages     map[string]string `yaml:"stages"`
	Technology map[string]string `yaml:"technology"`
}

// DefaultTaxonomy returns the built-in stage and technology synonyms.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Stages: map[string]string{
			"pre-seed":       "Pre-Seed Round",
			"pre seed":       "Pre-Seed Round",
			"preseed":        "Pre-Seed Round",
			"seed":           "Seed Round",
			"seed round":     "Seed Round",
			"series a":       "Series A",
			"series-a":       "Series A",
			"a round":        "Series A",
			"series b":       "Series B",
			"series-b":       "Series B",
			"b round":        "Series B",
			"series c":       "Series C",
			"series-c":       "Series C",
			"series d":       "Series D",
			"series e":       "Series E",
			"growth":         "Growth Round",
			"growth equity":  "Growth Round",
			"bridge":         "Bridge Round",
			"debt":           "Debt Financing",
			"debt financing": "Debt Financing",
			"ipo":            "IPO",
		},
		Technology: map[string]string{
			"ai":                      "Artificial Intelligence",
			"artificial intelligence": "Artificial Intelligence",
			"machine learning":        "Artificial Intelligence",
			"ml":                      "Artificial Intelligence",
			"generative ai":           "Artificial Intelligence",
			"cyber":                   "Cybersecurity",
			"cybersecurity":           "Cybersecurity",
			"cyber security":          "Cybersecurity",
			"security":                "Cybersecurity",
			"infosec":                 "Cybersecurity",
			"fintech":                 "FinTech",
			"financial technology":    "FinTech",
			"payments":                "FinTech",
			"healthtech":              "HealthTech",
			"health tech":             "HealthTech",
			"digital health":          "HealthTech",
			"biotech":                 "Biotech",
			"biotechnology":           "Biotech",
			"saas":                    "SaaS",
			"software as a service":   "SaaS",
			"enterprise software":     "SaaS",
			"blockchain":              "Blockchain",
			"crypto":                  "Blockchain",
			"web3":                    "Blockchain",
			"cleantech":               "Climate Tech",
			"climate tech":            "Climate Tech",
			"climatetech":             "Climate Tech",
			"edtech":                  "EdTech",
			"education technology":    "EdTech",
			"robotics":                "Robotics",
			"quantum computing":       "Quantum Computing",
			"quantum":                 "Quantum Computing",
		},
	}
}

// LoadTaxonomy reads stage and technology overrides from a YAML file and
// merges them over the defaults. An empty path returns the defaults.
func LoadTaxonomy(path string) (Taxonomy, error) {
	tax := DefaultTaxonomy()
	if path == "" {
		return tax, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tax, eris.Wrapf(err, "extract: read taxonomy %s", path)
	}
	var override Taxonomy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tax, eris.Wrapf(err, "extract: parse taxonomy %s", path)
	}
	for k, v := range override.Stages {
		tax.Stages[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for k, v := range override.Technology {
		tax.Technology[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return tax, nil
}

// Stage maps a funding stage to its canonical label. Unknown stages pass
// through trimmed but otherwise unchanged.
func (t Taxonomy) Stage(s string) string {
	s = strings.TrimSpace(s)
	if canon, ok := t.Stages[lookupKey(s)]; ok {
		return canon
	}
	return s
}

// Theme maps a technology label to the canonical taxonomy.
func (t Taxonomy) Theme(s string) string {
	s = strings.TrimSpace(s)
	if canon, ok := t.Technology[lookupKey(s)]; ok {
		return canon
	}
	return s
}

func lookupKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var (
	corporateSuffixRe = regexp.MustCompile(`(?i)[\s,]+(inc|incorporated|llc|ltd|limited|corp|corporation)\.?$`)
	nonWordRe         = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// CompanyName strips corporate suffixes and punctuation from a company name.
func CompanyName(s string) string {
	s = strings.TrimSpace(s)
	for {
		stripped := corporateSuffixRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = nonWordRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

var designationWords = map[string]string{
	"ventures":   "",
	"capital":    "",
	"partners":   "",
	"fund":       "",
	"management": "",
	"lp":         "LP",
}

// InvestorName title-cases designation words (Ventures, Capital, Partners,
// Fund, LP, Management) and leaves the rest of the name alone.
func InvestorName(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(strings.TrimRight(w, ".,"))
		canon, ok := designationWords[lower]
		if !ok {
			continue
		}
		trail := w[len(strings.TrimRight(w, ".,")):]
		if canon == "" {
			canon = cases.Title(language.English).String(lower)
		}
		words[i] = canon + trail
	}
	return strings.Join(words, " ")
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
