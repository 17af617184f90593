package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/pkg/perplexity"
)

const researchSystemPrompt = `You are a company research assistant. Answer with ONLY a JSON object. Use empty strings for anything you cannot confirm from reputable sources. Never guess LinkedIn URLs.`

// researchPayload is the structured company answer from the research
// service.
type researchPayload struct {
	Website       string         `json:"website"`
	FoundedYear   flexString     `json:"foundedYear"`
	EmployeeRange string         `json:"employeeRange"`
	Location      string         `json:"location"`
	Description   string         `json:"description"`
	CrunchbaseURL string         `json:"crunchbaseUrl"`
	AngelListURL  string         `json:"angelListUrl"`
	Team          []researchTeam `json:"team"`
}

type researchTeam struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedinUrl"`
}

// flexString decodes a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func companyResearchPrompt(name string) string {
	return fmt.Sprintf(`Research the company %q. Return:
{
  "website": "<official website URL>",
  "foundedYear": "<four digit year>",
  "employeeRange": "<e.g. 11-50>",
  "location": "<City, State/Region, Country of headquarters>",
  "description": "<one or two sentences on what the company does>",
  "crunchbaseUrl": "<Crunchbase organization URL>",
  "angelListUrl": "<Wellfound/AngelList URL>",
  "team": [{"name": "<full name>", "title": "<role>", "linkedinUrl": "<profile URL>"}]
}`, name)
}

func founderSearchPrompt(name string) string {
	return fmt.Sprintf(`Who founded %q and who are its current executives? Return:
{"team": [{"name": "<full name>", "title": "<role>", "linkedinUrl": "<profile URL>"}]}`, name)
}

// research asks the research service a question and decodes its JSON reply.
func (p *Profiler) research(ctx context.Context, prompt string) (researchPayload, error) {
	temp := 0.0
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temp,
	}
	resp, err := resilience.Call(ctx, p.researchGate, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return p.researcher.ChatCompletion(ctx, req)
	})
	p.tracker.Perplexity()
	if err != nil {
		return researchPayload{}, eris.Wrap(err, "profile: research")
	}

	var out researchPayload
	if err := json.Unmarshal([]byte(cleanJSON(resp.Content())), &out); err != nil {
		return researchPayload{}, eris.Wrap(err, "profile: parse research reply")
	}
	return out, nil
}

func (r researchPayload) teamMembers(source model.TeamMemberSource) []model.TeamMember {
	var out []model.TeamMember
	for _, m := range r.Team {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		out = append(out, model.TeamMember{
			Name:        name,
			Title:       strings.TrimSpace(m.Title),
			LinkedInURL: strings.TrimSpace(m.LinkedInURL),
			Source:      source,
		})
	}
	return out
}

func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}
