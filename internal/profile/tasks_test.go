package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/funding-cli/internal/model"
)

func TestLinkedInCompanyURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/company/acme-cyber", LinkedInCompanyURL("Acme Cyber"))
	assert.Equal(t, "https://www.linkedin.com/company/o-neil-co", LinkedInCompanyURL("O'Neil & Co."))
	assert.Empty(t, LinkedInCompanyURL("!!!"))
}

func TestManualTasks(t *testing.T) {
	p := &model.CompanyProfile{Name: "Acme", Location: "Austin, TX", Tiers: []int{1, 2, 3}}
	tasks := manualTasks(p)

	assert.Len(t, tasks, 2)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.NotEmpty(t, tasks[0].LinkedInURL)
	assert.Equal(t, "Missing employee count", tasks[1].Reason)
	assert.Empty(t, tasks[1].LinkedInURL)
	assert.Contains(t, tasks[1].Data["missing_fields"], "employee_range")

	p.TeamMembers = []model.TeamMember{{Name: "Jane Doe"}}
	p.EmployeeRange = "1-10"
	assert.Empty(t, manualTasks(p))
}

func TestEmployeeRange(t *testing.T) {
	tests := map[int]string{0: "", 1: "1-10", 11: "11-50", 200: "51-200", 1000: "501-1000", 10000: "5001-10000", 10001: "10001+"}
	for n, want := range tests {
		assert.Equal(t, want, employeeRange(n), n)
	}
}
