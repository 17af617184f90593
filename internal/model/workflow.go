package model

import "time"

// ResultStatus tags each entry of a workflow run.
type ResultStatus string

const (
	StatusComplete             ResultStatus = "complete"
	StatusManualReviewRequired ResultStatus = "manual_review_required"
	StatusError                ResultStatus = "error"
)

// ResultEntry is the outcome of one input text within a workflow run.
type ResultEntry struct {
	Index    int             `json:"index"`
	Status   ResultStatus    `json:"status"`
	Analysis *AnalysisResult `json:"analysis,omitempty"`
	Profile  *CompanyProfile `json:"profile,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// CompanyName returns the best known company name for the entry.
func (e ResultEntry) CompanyName() string {
	if e.Analysis == nil {
		return ""
	}
	if e.Analysis.FinalData.CompanyName != "" {
		return e.Analysis.FinalData.CompanyName
	}
	return e.Analysis.Draft.CompanyName
}

// WorkflowResult summarises a complete batch run.
type WorkflowResult struct {
	Success           bool          `json:"success"`
	ProcessedCount    int           `json:"processed_count"`
	VerifiedCount     int           `json:"verified_count"`
	ManualReviewCount int           `json:"manual_review_count"`
	ErrorCount        int           `json:"error_count"`
	Results           []ResultEntry `json:"results"`
	Errors            []string      `json:"errors"`
	ExecutionTimeMs   int64         `json:"execution_time_ms"`
	Usage             TokenUsage    `json:"usage"`
}

// SingleResult is the outcome of processing one article interactively.
type SingleResult struct {
	Draft    FundingDraft    `json:"draft"`
	Analysis AnalysisResult  `json:"analysis"`
	Profile  *CompanyProfile `json:"profile,omitempty"`
	Queued   bool            `json:"queued"`
}

// AgentStatus reports the operational state of one pipeline component.
type AgentStatus struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
}

// Agent states.
const (
	AgentReady    = "ready"
	AgentDegraded = "degraded"
)

// WorkflowStats is the aggregate view rendered by dashboards and the CLI.
type WorkflowStats struct {
	QueueLength      int                   `json:"queue_length"`
	QueueByType      map[QueueItemType]int `json:"queue_by_type"`
	QueueByPriority  map[Priority]int      `json:"queue_by_priority"`
	Agents           []AgentStatus         `json:"agents"`
	LastRun          *WorkflowResult       `json:"last_run,omitempty"`
	LastRunAt        time.Time             `json:"last_run_at,omitempty"`
	Usage            TokenUsage            `json:"usage"`
	EstimatedCostUSD float64               `json:"estimated_cost_usd"`
}
