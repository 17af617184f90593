package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completeProfile() *CompanyProfile {
	return &CompanyProfile{
		Name:          "Acme Cyber",
		Website:       "https://acmecyber.com",
		FoundedYear:   "2019",
		EmployeeRange: "11-50",
		Location:      "Austin, TX",
		Description:   "Endpoint security for small businesses.",
		TeamMembers:   []TeamMember{{Name: "Jane Doe", Title: "CEO", Source: TeamSourceStructuredDB}},
	}
}

func TestCompanyProfile_IsComplete(t *testing.T) {
	t.Parallel()

	assert.True(t, completeProfile().IsComplete())

	var nilProfile *CompanyProfile
	assert.False(t, nilProfile.IsComplete())

	noTeam := completeProfile()
	noTeam.TeamMembers = nil
	assert.False(t, noTeam.IsComplete())
	assert.Equal(t, []string{"team_members"}, noTeam.MissingFields())

	noLocation := completeProfile()
	noLocation.Location = ""
	assert.False(t, noLocation.IsComplete())
	assert.Equal(t, []string{"location"}, noLocation.MissingFields())
}

func TestCompanyProfile_OptionalURLsIgnored(t *testing.T) {
	t.Parallel()

	p := completeProfile()
	p.CrunchbaseURL = ""
	p.AngelListURL = ""
	assert.True(t, p.IsComplete())
	assert.Empty(t, p.MissingFields())
}
