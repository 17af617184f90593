package profile

import (
	"regexp"
	"strings"

	"github.com/sells-group/funding-cli/internal/model"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// LinkedInCompanyURL guesses a company's LinkedIn page from its name.
func LinkedInCompanyURL(name string) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		return ""
	}
	return "https://www.linkedin.com/company/" + slug
}

// manualTasks returns a company_profiling task for each gap automation
// could not close. Missing founders are high priority.
func manualTasks(p *model.CompanyProfile) []model.QueueItem {
	data := func() map[string]any {
		return map[string]any{
			"missing_fields": p.MissingFields(),
			"website":        p.Website,
			"tiers":          append([]int(nil), p.Tiers...),
		}
	}

	var tasks []model.QueueItem
	if len(p.TeamMembers) == 0 {
		tasks = append(tasks, model.QueueItem{
			Type:        model.QueueTypeCompanyProfiling,
			CompanyName: p.Name,
			Data:        data(),
			Reason:      "Missing founder and leadership information",
			Priority:    model.PriorityHigh,
			LinkedInURL: LinkedInCompanyURL(p.Name),
		})
	}
	if p.EmployeeRange == "" {
		tasks = append(tasks, model.QueueItem{
			Type:        model.QueueTypeCompanyProfiling,
			CompanyName: p.Name,
			Data:        data(),
			Reason:      "Missing employee count",
			Priority:    model.PriorityMedium,
		})
	}
	if p.Location == "" {
		tasks = append(tasks, model.QueueItem{
			Type:        model.QueueTypeCompanyProfiling,
			CompanyName: p.Name,
			Data:        data(),
			Reason:      "Missing headquarters location",
			Priority:    model.PriorityMedium,
		})
	}
	return tasks
}

// employeeRange buckets a headcount.
func employeeRange(n int) string {
	switch {
	case n <= 0:
		return ""
	case n <= 10:
		return "1-10"
	case n <= 50:
		return "11-50"
	case n <= 200:
		return "51-200"
	case n <= 500:
		return "201-500"
	case n <= 1000:
		return "501-1000"
	case n <= 5000:
		return "1001-5000"
	case n <= 10000:
		return "5001-10000"
	default:
		return "10001+"
	}
}
