package model

// VerificationSource is one corroborating document found during source
// discovery.
type VerificationSource struct {
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Reliability float64 `json:"reliability"`
}

// FieldObservation accumulates the votes for one normalized value of a field.
type FieldObservation struct {
	Value                  string  `json:"value"`
	Count                  int     `json:"count"`
	SourceIndices          []int   `json:"source_indices"`
	AccumulatedReliability float64 `json:"accumulated_reliability"`
}

// ConfidenceScore holds per-field scores and their mean.
type ConfidenceScore struct {
	Fields  map[Field]float64 `json:"fields"`
	Overall float64           `json:"overall"`
}

// CandidateValue is one observed value for a disputed field.
type CandidateValue struct {
	Value     string  `json:"value"`
	Count     int     `json:"count"`
	Consensus float64 `json:"consensus"`
}

// Discrepancy records a field on which the observations disagree without a
// confident majority.
type Discrepancy struct {
	Field          Field            `json:"field"`
	Candidates     []CandidateValue `json:"candidates"`
	Recommendation string           `json:"recommendation"`
	ManualReview   bool             `json:"manual_review"`
}

// AnalysisResult is the terminal artifact of verifying one draft.
type AnalysisResult struct {
	Verified             bool                 `json:"verified"`
	Confidence           ConfidenceScore      `json:"confidence"`
	Discrepancies        []Discrepancy        `json:"discrepancies"`
	Sources              []VerificationSource `json:"sources"`
	SourceCount          int                  `json:"source_count"`
	Draft                FundingDraft         `json:"draft"`
	FinalData            FundingDraft         `json:"final_data"`
	RequiresManualReview bool                 `json:"requires_manual_review"`
	ReviewReason         string               `json:"review_reason,omitempty"`
	Usage                TokenUsage           `json:"usage"`
}
