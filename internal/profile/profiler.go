// Package profile builds firmographic profiles for verified companies
// through escalating tiers: structured lookup, broad web search and site
// parsing, then manual review tasks.
package profile

import (
	"context"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/cost"
	"github.com/sells-group/funding-cli/internal/metrics"
	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/internal/scrape"
	"github.com/sells-group/funding-cli/pkg/google"
	"github.com/sells-group/funding-cli/pkg/jina"
	"github.com/sells-group/funding-cli/pkg/perplexity"
	"github.com/sells-group/funding-cli/pkg/salesforce"
)

// Describer writes a company description from article content.
type Describer interface {
	Describe(ctx context.Context, company, content string) (string, error)
}

// Result is a built profile plus the manual tasks raised for its gaps.
type Result struct {
	Profile *model.CompanyProfile
	Tasks   []model.QueueItem
}

// Profiler builds company profiles. Every source is optional; a nil
// source is skipped.
type Profiler struct {
	crm          salesforce.Client
	researcher   perplexity.Client
	search       jina.Client
	places       google.Directory
	fetcher      scrape.Fetcher
	describer    Describer
	crmGate      *resilience.Gate
	researchGate *resilience.Gate
	searchGate   *resilience.Gate
	placesGate   *resilience.Gate
	tracker      *cost.Tracker
	metrics      *metrics.Metrics
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithCRM sets the structured company database.
func WithCRM(c salesforce.Client, gate *resilience.Gate) Option {
	return func(p *Profiler) { p.crm, p.crmGate = c, gate }
}

// WithResearcher sets the research service used for the secondary
// structured lookup and founder search.
func WithResearcher(c perplexity.Client, gate *resilience.Gate) Option {
	return func(p *Profiler) { p.researcher, p.researchGate = c, gate }
}

// WithSearch sets the web search provider.
func WithSearch(c jina.Client, gate *resilience.Gate) Option {
	return func(p *Profiler) { p.search, p.searchGate = c, gate }
}

// WithPlaces sets the places directory used to find a missing website or
// address.
func WithPlaces(c google.Directory, gate *resilience.Gate) Option {
	return func(p *Profiler) { p.places, p.placesGate = c, gate }
}

// WithFetcher sets the page fetcher for company websites.
func WithFetcher(f scrape.Fetcher) Option { return func(p *Profiler) { p.fetcher = f } }

// WithDescriber sets the description writer used on funding articles.
func WithDescriber(d Describer) Option { return func(p *Profiler) { p.describer = d } }

// WithTracker records research and search spend.
func WithTracker(t *cost.Tracker) Option { return func(p *Profiler) { p.tracker = t } }

// WithMetrics records profile counters.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Profiler) { p.metrics = m } }

// New creates a Profiler.
func New(opts ...Option) *Profiler {
	p := &Profiler{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProfileCompany runs the tiers in order, stopping once the profile is
// complete. Each tier runs at most once. Source failures are logged and
// the tier moves on; an error is returned only when profiling itself
// cannot proceed.
func (p *Profiler) ProfileCompany(ctx context.Context, name string) (res *Result, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, eris.New("profile: company name is empty")
	}
	log := zap.L().With(zap.String("component", "profile"), zap.String("company", name))

	defer func() {
		if r := recover(); r != nil {
			log.Error("profile: panic while profiling",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			res, err = nil, eris.Errorf("profile: panic: %v", r)
		}
	}()

	prof := &model.CompanyProfile{Name: name}

	prof.Tiers = append(prof.Tiers, 1)
	p.structuredLookup(ctx, log, prof)

	if !prof.IsComplete() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "profile: tier 2")
		}
		prof.Tiers = append(prof.Tiers, 2)
		p.broadSearch(ctx, log, prof)
	}

	var tasks []model.QueueItem
	if !prof.IsComplete() {
		prof.Tiers = append(prof.Tiers, 3)
		tasks = manualTasks(prof)
	}

	tier := prof.Tiers[len(prof.Tiers)-1]
	p.metrics.Profiled(strconv.Itoa(tier), prof.IsComplete())
	log.Info("profile: company profiled",
		zap.Ints("tiers", prof.Tiers),
		zap.Bool("complete", prof.IsComplete()),
		zap.Int("team_members", len(prof.TeamMembers)),
		zap.Int("tasks", len(tasks)),
	)
	return &Result{Profile: prof, Tasks: tasks}, nil
}

// structuredLookup is tier 1: the CRM first, then the research service
// for any scalar still empty. Team members from both are kept.
func (p *Profiler) structuredLookup(ctx context.Context, log *zap.Logger, prof *model.CompanyProfile) {
	if p.crm != nil {
		acct, err := resilience.Call(ctx, p.crmGate, func(ctx context.Context) (*salesforce.Account, error) {
			return salesforce.FindAccountByName(ctx, p.crm, prof.Name)
		})
		switch {
		case err != nil:
			log.Warn("profile: crm lookup failed", zap.Error(err))
		case acct != nil:
			fill(&prof.Website, normalizeWebsite(acct.Website))
			fill(&prof.FoundedYear, strings.TrimSpace(acct.YearStarted))
			fill(&prof.EmployeeRange, employeeRange(acct.NumberOfEmployees))
			fill(&prof.Location, acct.Location())
			fill(&prof.Description, strings.TrimSpace(acct.Description))

			contacts, err := resilience.Call(ctx, p.crmGate, func(ctx context.Context) ([]salesforce.Contact, error) {
				return salesforce.ListLeadership(ctx, p.crm, acct.ID, 10)
			})
			if err != nil {
				log.Warn("profile: crm contacts failed", zap.Error(err))
			}
			for _, c := range contacts {
				if strings.TrimSpace(c.Name) == "" {
					continue
				}
				prof.TeamMembers = append(prof.TeamMembers, model.TeamMember{
					Name:        c.Name,
					Title:       c.Title,
					LinkedInURL: c.LinkedInURL,
					Source:      model.TeamSourceStructuredDB,
				})
			}
		}
	}

	if p.researcher == nil {
		return
	}
	r, err := p.research(ctx, companyResearchPrompt(prof.Name))
	if err != nil {
		log.Warn("profile: research lookup failed", zap.Error(err))
		return
	}
	fill(&prof.Website, normalizeWebsite(r.Website))
	fill(&prof.FoundedYear, strings.TrimSpace(string(r.FoundedYear)))
	fill(&prof.EmployeeRange, strings.TrimSpace(r.EmployeeRange))
	fill(&prof.Location, strings.TrimSpace(r.Location))
	fill(&prof.Description, strings.TrimSpace(r.Description))
	fill(&prof.CrunchbaseURL, strings.TrimSpace(r.CrunchbaseURL))
	fill(&prof.AngelListURL, strings.TrimSpace(r.AngelListURL))
	prof.TeamMembers = appendNew(prof.TeamMembers, r.teamMembers(model.TeamSourceWebSearch)...)
}

// broadSearch is tier 2. It only fills fields that are still empty.
func (p *Profiler) broadSearch(ctx context.Context, log *zap.Logger, prof *model.CompanyProfile) {
	if len(prof.TeamMembers) == 0 && p.researcher != nil {
		r, err := p.research(ctx, founderSearchPrompt(prof.Name))
		if err != nil {
			log.Warn("profile: founder search failed", zap.Error(err))
		} else {
			prof.TeamMembers = appendNew(prof.TeamMembers, r.teamMembers(model.TeamSourceWebSearch)...)
		}
	}

	if prof.Description == "" && p.search != nil && p.describer != nil {
		p.describeFromArticle(ctx, log, prof)
	}

	if (prof.Website == "" || prof.Location == "") && p.places != nil {
		p.lookupPlace(ctx, log, prof)
	}

	if prof.Website != "" && p.fetcher != nil {
		p.parseWebsite(ctx, log, prof)
	}
}

// lookupPlace takes the website and address of the first place whose
// name contains the company name.
func (p *Profiler) lookupPlace(ctx context.Context, log *zap.Logger, prof *model.CompanyProfile) {
	listings, err := resilience.Call(ctx, p.placesGate, func(ctx context.Context) ([]google.Listing, error) {
		return p.places.FindCompany(ctx, prof.Name)
	})
	if err != nil {
		log.Warn("profile: places lookup failed", zap.Error(err))
		return
	}
	lowerName := strings.ToLower(prof.Name)
	for _, l := range listings {
		if !strings.Contains(strings.ToLower(l.Name), lowerName) {
			continue
		}
		fill(&prof.Website, normalizeWebsite(l.Website))
		fill(&prof.Location, l.Address)
		return
	}
}

// describeChars caps the article text sent for a description.
const describeChars = 4000

func (p *Profiler) describeFromArticle(ctx context.Context, log *zap.Logger, prof *model.CompanyProfile) {
	query := `"` + prof.Name + `" funding`
	resp, err := resilience.Call(ctx, p.searchGate, func(ctx context.Context) (*jina.SearchResponse, error) {
		return p.search.Search(ctx, query, jina.WithCount(3))
	})
	p.tracker.Search()
	if err != nil {
		log.Warn("profile: funding article search failed", zap.Error(err))
		return
	}
	lowerName := strings.ToLower(prof.Name)
	for _, r := range resp.Data {
		content := r.Content
		if content == "" {
			content = r.Description
		}
		if !strings.Contains(strings.ToLower(content), lowerName) {
			continue
		}
		if r := []rune(content); len(r) > describeChars {
			content = string(r[:describeChars])
		}
		desc, err := p.describer.Describe(ctx, prof.Name, content)
		if err != nil {
			log.Warn("profile: describe failed", zap.String("url", r.URL), zap.Error(err))
			return
		}
		if desc != "" {
			fill(&prof.Description, desc)
			return
		}
	}
}

// parseWebsite reads the homepage plus the usual about and team paths.
func (p *Profiler) parseWebsite(ctx context.Context, log *zap.Logger, prof *model.CompanyProfile) {
	for _, path := range []string{"", "/about", "/team"} {
		if len(prof.TeamMembers) > 0 && prof.Description != "" {
			return
		}
		target := strings.TrimRight(prof.Website, "/") + path
		page, err := p.fetcher.Fetch(ctx, target)
		if err != nil || page == nil {
			log.Debug("profile: website fetch failed", zap.String("url", target), zap.Error(err))
			continue
		}
		info := parseSite(page.HTML, page.Text)
		if len(prof.TeamMembers) == 0 {
			prof.TeamMembers = appendNew(prof.TeamMembers, info.Team...)
		}
		fill(&prof.Description, info.Description)
	}
}

// fill sets *dst to v only when *dst is empty.
func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// appendNew adds members whose names are not already present.
func appendNew(team []model.TeamMember, more ...model.TeamMember) []model.TeamMember {
	have := make(map[string]bool, len(team))
	for _, m := range team {
		have[strings.ToLower(m.Name)] = true
	}
	for _, m := range more {
		key := strings.ToLower(m.Name)
		if have[key] {
			continue
		}
		have[key] = true
		team = append(team, m)
	}
	return team
}

// normalizeWebsite returns an absolute https URL, or "" for junk.
func normalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
