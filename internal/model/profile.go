package model

// TeamMemberSource records where a team member was found.
type TeamMemberSource string

const (
	TeamSourceStructuredDB TeamMemberSource = "structuredDb"
	TeamSourceWebSearch    TeamMemberSource = "webSearch"
	TeamSourceWebsite      TeamMemberSource = "website"
	TeamSourceManual       TeamMemberSource = "manual"
)

// TeamMember is a founder or executive of a profiled company.
type TeamMember struct {
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	LinkedInURL string           `json:"linkedin_url,omitempty"`
	Source      TeamMemberSource `json:"source"`
}

// CompanyProfile is the firmographic profile built across the profiling tiers.
type CompanyProfile struct {
	Name          string       `json:"name"`
	Website       string       `json:"website"`
	FoundedYear   string       `json:"founded_year"`
	EmployeeRange string       `json:"employee_range"`
	Location      string       `json:"location"`
	Description   string       `json:"description"`
	TeamMembers   []TeamMember `json:"team_members"`
	CrunchbaseURL string       `json:"crunchbase_url,omitempty"`
	AngelListURL  string       `json:"angellist_url,omitempty"`
	Tiers         []int        `json:"tiers"`
}

// IsComplete reports whether every scalar field is populated and at least
// one team member is known.
func (p *CompanyProfile) IsComplete() bool {
	if p == nil {
		return false
	}
	for _, v := range []string{p.Name, p.Website, p.FoundedYear, p.EmployeeRange, p.Location, p.Description} {
		if v == "" {
			return false
		}
	}
	return len(p.TeamMembers) > 0
}

// MissingFields returns the names of the scalar fields that are still empty.
func (p *CompanyProfile) MissingFields() []string {
	var missing []string
	checks := []struct {
		name  string
		value string
	}{
		{"name", p.Name},
		{"website", p.Website},
		{"founded_year", p.FoundedYear},
		{"employee_range", p.EmployeeRange},
		{"location", p.Location},
		{"description", p.Description},
	}
	for _, c := range checks {
		if c.value == "" {
			missing = append(missing, c.name)
		}
	}
	if len(p.TeamMembers) == 0 {
		missing = append(missing, "team_members")
	}
	return missing
}
