package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/scrape"
	"github.com/sells-group/funding-cli/pkg/google"
	googlemocks "github.com/sells-group/funding-cli/pkg/google/mocks"
	"github.com/sells-group/funding-cli/pkg/jina"
	jinamocks "github.com/sells-group/funding-cli/pkg/jina/mocks"
	"github.com/sells-group/funding-cli/pkg/perplexity"
	pplxmocks "github.com/sells-group/funding-cli/pkg/perplexity/mocks"
	"github.com/sells-group/funding-cli/pkg/salesforce"
)

type crmStub struct {
	accounts []salesforce.Account
	contacts []salesforce.Contact
	err      error
	queries  int
}

func (s *crmStub) Query(_ context.Context, _ string, out any) error {
	s.queries++
	if s.err != nil {
		return s.err
	}
	switch v := out.(type) {
	case *[]salesforce.Account:
		*v = s.accounts
	case *[]salesforce.Contact:
		*v = s.contacts
	}
	return nil
}

type pageStub struct {
	pages   map[string]*scrape.Page
	fetched []string
}

func (s *pageStub) Fetch(_ context.Context, url string) (*scrape.Page, error) {
	s.fetched = append(s.fetched, url)
	if p, ok := s.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

type describerStub struct {
	desc    string
	calls   int
	content string
}

func (s *describerStub) Describe(_ context.Context, _, content string) (string, error) {
	s.calls++
	s.content = content
	return s.desc, nil
}

func reply(content string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: content}}},
	}
}

func promptContains(s string) any {
	return mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 && strings.Contains(req.Messages[1].Content, s)
	})
}

func fullAccount() salesforce.Account {
	return salesforce.Account{
		ID:                "001A",
		Name:              "Acme Cyber",
		Website:           "acmecyber.com",
		Description:       "Acme Cyber builds endpoint detection for small businesses.",
		BillingCity:       "Austin",
		BillingState:      "TX",
		BillingCountry:    "US",
		NumberOfEmployees: 42,
		YearStarted:       "2019",
	}
}

func TestProfileCompany_CompleteFromCRM(t *testing.T) {
	crm := &crmStub{
		accounts: []salesforce.Account{fullAccount()},
		contacts: []salesforce.Contact{{ID: "003A", Name: "Jane Doe", Title: "CEO"}},
	}
	p := New(WithCRM(crm, nil))

	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)

	prof := res.Profile
	assert.True(t, prof.IsComplete())
	assert.Equal(t, []int{1}, prof.Tiers)
	assert.Equal(t, "https://acmecyber.com", prof.Website)
	assert.Equal(t, "11-50", prof.EmployeeRange)
	assert.Equal(t, "Austin, TX, US", prof.Location)
	assert.Equal(t, "2019", prof.FoundedYear)
	require.Len(t, prof.TeamMembers, 1)
	assert.Equal(t, model.TeamSourceStructuredDB, prof.TeamMembers[0].Source)
	assert.Empty(t, res.Tasks)
}

func TestProfileCompany_ResearchFillsOnlyEmptyScalars(t *testing.T) {
	acct := fullAccount()
	acct.BillingCity, acct.BillingState, acct.BillingCountry = "", "", ""
	crm := &crmStub{
		accounts: []salesforce.Account{acct},
		contacts: []salesforce.Contact{{Name: "Jane Doe", Title: "CEO"}},
	}
	pplx := pplxmocks.NewMockClient(t)
	pplx.On("ChatCompletion", mock.Anything, promptContains("Research the company")).
		Return(reply(`{"website":"https://other.example","foundedYear":2001,"location":"Denver, CO, US","team":[{"name":"John Roe","title":"CTO"},{"name":"jane doe","title":"CEO"}]}`), nil).Once()

	p := New(WithCRM(crm, nil), WithResearcher(pplx, nil))
	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)

	prof := res.Profile
	assert.Equal(t, "https://acmecyber.com", prof.Website, "crm value kept")
	assert.Equal(t, "2019", prof.FoundedYear, "crm value kept")
	assert.Equal(t, "Denver, CO, US", prof.Location)
	require.Len(t, prof.TeamMembers, 2)
	assert.Equal(t, model.TeamSourceStructuredDB, prof.TeamMembers[0].Source)
	assert.Equal(t, "John Roe", prof.TeamMembers[1].Name)
	assert.Equal(t, model.TeamSourceWebSearch, prof.TeamMembers[1].Source)
	assert.True(t, prof.IsComplete())
	assert.Equal(t, []int{1}, prof.Tiers)
}

func TestProfileCompany_Tier2NeverOverwritesTier1(t *testing.T) {
	acct := fullAccount()
	acct.NumberOfEmployees = 0
	crm := &crmStub{accounts: []salesforce.Account{acct}}

	pplx := pplxmocks.NewMockClient(t)
	pplx.On("ChatCompletion", mock.Anything, promptContains("Research the company")).
		Return(reply(`{"description":"Something else entirely that is long enough to count."}`), nil).Once()
	pplx.On("ChatCompletion", mock.Anything, promptContains("Who founded")).
		Return(reply(`{"team":[]}`), nil).Once()

	site := &pageStub{pages: map[string]*scrape.Page{
		"https://acmecyber.com": {HTML: `<html><head><meta name="description" content="A site description that should not replace the crm one."></head>
<body><section class="team"><div><h3>Jane Doe</h3><p>Co-Founder &amp; CEO</p><a href="https://www.linkedin.com/in/janedoe">in</a></div></section></body></html>`},
	}}

	p := New(WithCRM(crm, nil), WithResearcher(pplx, nil), WithFetcher(site))
	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)

	prof := res.Profile
	assert.Equal(t, acct.Description, prof.Description)
	require.Len(t, prof.TeamMembers, 1)
	assert.Equal(t, "Jane Doe", prof.TeamMembers[0].Name)
	assert.Equal(t, model.TeamSourceWebsite, prof.TeamMembers[0].Source)
	assert.Equal(t, "https://www.linkedin.com/in/janedoe", prof.TeamMembers[0].LinkedInURL)
	assert.Equal(t, []int{1, 2, 3}, prof.Tiers)

	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "Missing employee count", res.Tasks[0].Reason)
	assert.Equal(t, model.PriorityMedium, res.Tasks[0].Priority)
}

func TestProfileCompany_ManualTasksWhenNothingFound(t *testing.T) {
	search := jinamocks.NewMockClient(t)
	search.On("Search", mock.Anything, `"Ghost Labs" funding`, mock.Anything).
		Return(&jina.SearchResponse{}, nil).Once()
	desc := &describerStub{}

	p := New(WithCRM(&crmStub{}, nil), WithSearch(search, nil), WithDescriber(desc))
	res, err := p.ProfileCompany(context.Background(), "Ghost Labs")
	require.NoError(t, err)

	assert.False(t, res.Profile.IsComplete())
	assert.Equal(t, []int{1, 2, 3}, res.Profile.Tiers)
	assert.Zero(t, desc.calls)

	require.Len(t, res.Tasks, 3)
	founders := res.Tasks[0]
	assert.Equal(t, model.QueueTypeCompanyProfiling, founders.Type)
	assert.Equal(t, model.PriorityHigh, founders.Priority)
	assert.Equal(t, "https://www.linkedin.com/company/ghost-labs", founders.LinkedInURL)
	assert.Equal(t, model.PriorityMedium, res.Tasks[1].Priority)
	assert.Equal(t, model.PriorityMedium, res.Tasks[2].Priority)
	assert.Equal(t, "Missing headquarters location", res.Tasks[2].Reason)
}

func TestProfileCompany_DescriptionFromFundingArticle(t *testing.T) {
	search := jinamocks.NewMockClient(t)
	search.On("Search", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&jina.SearchResponse{Data: []jina.SearchResult{
			{URL: "https://x.example/a", Content: "unrelated"},
			{URL: "https://techcrunch.com/acme", Content: "Acme Cyber raised $12M to expand its endpoint platform."},
		}}, nil).Once()
	desc := &describerStub{desc: "Acme Cyber builds endpoint security."}

	p := New(WithSearch(search, nil), WithDescriber(desc))
	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)
	assert.Equal(t, "Acme Cyber builds endpoint security.", res.Profile.Description)
	assert.Equal(t, 1, desc.calls)
}

func TestProfileCompany_DescriptionInputTruncatedOnRunes(t *testing.T) {
	search := jinamocks.NewMockClient(t)
	search.On("Search", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&jina.SearchResponse{Data: []jina.SearchResult{
			{URL: "https://news.example/acme", Content: "Acme Cyber " + strings.Repeat("é", 5000)},
		}}, nil).Once()
	desc := &describerStub{desc: "Acme Cyber builds endpoint security."}

	p := New(WithSearch(search, nil), WithDescriber(desc))
	_, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(desc.content))
	assert.Equal(t, describeChars, utf8.RuneCountInString(desc.content))
}

func TestProfileCompany_PlacesFillsWebsiteThenSiteIsParsed(t *testing.T) {
	acct := fullAccount()
	acct.Website, acct.BillingCity, acct.BillingState, acct.BillingCountry = "", "", "", ""
	crm := &crmStub{accounts: []salesforce.Account{acct}}

	places := googlemocks.NewMockDirectory(t)
	places.On("FindCompany", mock.Anything, "Acme Cyber").Return([]google.Listing{
		{Name: "Acme Plumbing", Website: "https://acmeplumbing.example"},
		{Name: "Acme Cyber HQ", Website: "https://www.acmecyber.com/home", Address: "Austin, TX 78701, USA"},
	}, nil).Once()

	site := &pageStub{pages: map[string]*scrape.Page{
		"https://www.acmecyber.com": {HTML: `<html><body><section class="team"><div><h3>Jane Doe</h3><p>Founder &amp; CEO</p></div></section></body></html>`},
	}}

	p := New(WithCRM(crm, nil), WithPlaces(places, nil), WithFetcher(site))
	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)

	prof := res.Profile
	assert.Equal(t, "https://www.acmecyber.com", prof.Website)
	assert.Equal(t, "Austin, TX 78701, USA", prof.Location)
	require.Len(t, prof.TeamMembers, 1)
	assert.Equal(t, "Jane Doe", prof.TeamMembers[0].Name)
	assert.True(t, prof.IsComplete())
	assert.Equal(t, []int{1, 2}, prof.Tiers)
	assert.Empty(t, res.Tasks)
}

func TestProfileCompany_PlacesSkippedWhenWebsiteAndLocationKnown(t *testing.T) {
	acct := fullAccount()
	acct.YearStarted = ""
	crm := &crmStub{accounts: []salesforce.Account{acct}}
	places := googlemocks.NewMockDirectory(t)

	p := New(WithCRM(crm, nil), WithPlaces(places, nil))
	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, res.Profile.Tiers)
	places.AssertNotCalled(t, "FindCompany", mock.Anything, mock.Anything)
}

func TestProfileCompany_SourceFailuresAreNotFatal(t *testing.T) {
	pplx := pplxmocks.NewMockClient(t)
	pplx.On("ChatCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("503")).Twice()

	p := New(WithCRM(&crmStub{err: errors.New("session expired")}, nil), WithResearcher(pplx, nil))
	res, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)
	assert.False(t, res.Profile.IsComplete())
	assert.Len(t, res.Tasks, 3)
}

func TestProfileCompany_Idempotent(t *testing.T) {
	acct := fullAccount()
	acct.YearStarted = ""
	crm := &crmStub{accounts: []salesforce.Account{acct}}

	p := New(WithCRM(crm, nil))
	first, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)
	second, err := p.ProfileCompany(context.Background(), "Acme Cyber")
	require.NoError(t, err)

	assert.Equal(t, first.Profile.IsComplete(), second.Profile.IsComplete())
	assert.Equal(t, first.Profile, second.Profile)
	assert.Equal(t, len(first.Tasks), len(second.Tasks))
}

func TestProfileCompany_EmptyName(t *testing.T) {
	_, err := New().ProfileCompany(context.Background(), "  ")
	require.Error(t, err)
}

func TestProfileCompany_PanicRecovered(t *testing.T) {
	pplx := pplxmocks.NewMockClient(t)
	pplx.On("ChatCompletion", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("boom") }).Return(nil, nil).Maybe()

	res, err := New(WithResearcher(pplx, nil)).ProfileCompany(context.Background(), "Acme Cyber")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "panic")
}

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme.com", "https://acme.com"},
		{"http://www.acme.com/about", "http://www.acme.com"},
		{"", ""},
		{"n/a", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeWebsite(tt.in))
		})
	}
}
