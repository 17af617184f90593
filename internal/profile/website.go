package profile

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/funding-cli/internal/model"
)

var (
	titleRe      = regexp.MustCompile(`(?i)\b(co-?founder|founder|ceo|cto|coo|cfo|cmo|cso|president|chief [a-z]+ officer|vp|vice president|head of [a-z]+|managing director|general partner|chair(man|woman|person)?)\b`)
	personNameRe = regexp.MustCompile(`^\p{Lu}[\p{L}'.-]+(?: \p{Lu}[\p{L}'.-]+){1,3}$`)

	// "Jane Doe, CEO" / "Jane Doe - Co-Founder" / "Jane Doe | CTO" lines in
	// markdown renderings.
	nameTitleLineRe = regexp.MustCompile(`^[*#\s-]*(\p{Lu}[\p{L}'.-]+(?: \p{Lu}[\p{L}'.-]+){1,3})\s*(?:,|-|–|\|)\s*(.+)$`)
)

const teamSelector = `[class*="team"], [id*="team"], [class*="leadership"], [id*="leadership"], [class*="founder"], [id*="founder"], [class*="management"], [id*="management"]`

// siteInfo is what could be read from a company's own pages.
type siteInfo struct {
	Team        []model.TeamMember
	Description string
}

// parseSite extracts team members and an about-us description from a page.
// HTML is preferred; text-only renderings fall back to line matching.
func parseSite(html, text string) siteInfo {
	if strings.TrimSpace(html) == "" {
		return siteInfo{Team: teamFromText(text), Description: aboutFromText(text)}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return siteInfo{Team: teamFromText(text), Description: aboutFromText(text)}
	}
	info := siteInfo{
		Team:        teamFromHTML(doc),
		Description: aboutFromHTML(doc),
	}
	if len(info.Team) == 0 {
		info.Team = teamFromText(text)
	}
	return info
}

func teamFromHTML(doc *goquery.Document) []model.TeamMember {
	var team []model.TeamMember
	seen := make(map[string]bool)
	doc.Find(teamSelector).Each(func(_ int, section *goquery.Selection) {
		section.Find("h2, h3, h4, h5, strong, b").Each(func(_ int, heading *goquery.Selection) {
			name := collapse(heading.Text())
			if !personNameRe.MatchString(name) || seen[name] {
				return
			}
			title := collapse(heading.Next().Text())
			if !titleRe.MatchString(title) {
				title = collapse(heading.Parent().Find("p, span, .title, .role").First().Text())
			}
			if !titleRe.MatchString(title) {
				return
			}
			member := model.TeamMember{Name: name, Title: title, Source: model.TeamSourceWebsite}
			if href, ok := heading.Parent().Find(`a[href*="linkedin.com/in/"]`).First().Attr("href"); ok {
				member.LinkedInURL = href
			}
			seen[name] = true
			team = append(team, member)
		})
	})
	return team
}

func teamFromText(text string) []model.TeamMember {
	var team []model.TeamMember
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		m := nameTitleLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name, title := m[1], collapse(m[2])
		if seen[name] || !titleRe.MatchString(title) || len(title) > 80 {
			continue
		}
		seen[name] = true
		team = append(team, model.TeamMember{Name: name, Title: title, Source: model.TeamSourceWebsite})
	}
	return team
}

const minAboutChars = 40

func aboutFromHTML(doc *goquery.Document) string {
	var about string
	doc.Find(`[class*="about"], [id*="about"]`).Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if t := collapse(p.Text()); len(t) >= minAboutChars {
			about = t
			return false
		}
		return true
	})
	if about != "" {
		return about
	}
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if c, ok := doc.Find(sel).First().Attr("content"); ok {
			if c = collapse(c); len(c) >= minAboutChars {
				return c
			}
		}
	}
	return ""
}

func aboutFromText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		l := strings.ToLower(strings.TrimSpace(strings.Trim(line, "#* ")))
		if l != "about" && l != "about us" && !strings.HasPrefix(l, "who we are") {
			continue
		}
		for _, next := range lines[i+1:] {
			if t := collapse(next); len(t) >= minAboutChars {
				return t
			}
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
