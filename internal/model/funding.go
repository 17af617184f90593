// Package model defines the records that flow through the funding
// extraction, verification and profiling pipeline.
package model

import "time"

// Entities is the raw entity payload returned by the inference service for a
// single text. It is kept on the draft for audit.
type Entities struct {
	Organizations []string `json:"organizations"`
	Money         []string `json:"money"`
	FundingStage  []string `json:"fundingStage"`
	Technology    []string `json:"technology"`
	Confidence    float64  `json:"confidence"`
}

// FundingDraft is the unverified output of entity extraction from one text.
// A draft is never mutated after creation; corrections produce a new value
// via Clone.
type FundingDraft struct {
	CompanyName       string     `json:"company_name"`
	Theme             string     `json:"theme"`
	Amount            int64      `json:"amount"`
	FundingStage      string     `json:"funding_stage"`
	LeadInvestor      string     `json:"lead_investor"`
	AllInvestors      []string   `json:"all_investors"`
	Confidence        float64    `json:"confidence"`
	RawText           string     `json:"raw_text"`
	ExtractedEntities Entities   `json:"extracted_entities"`
	Usage             TokenUsage `json:"usage"`
	ExtractedAt       time.Time  `json:"extracted_at"`
}

// Clone returns a deep copy of the draft.
func (d FundingDraft) Clone() FundingDraft {
	out := d
	out.AllInvestors = append([]string(nil), d.AllInvestors...)
	out.ExtractedEntities = Entities{
		Organizations: append([]string(nil), d.ExtractedEntities.Organizations...),
		Money:         append([]string(nil), d.ExtractedEntities.Money...),
		FundingStage:  append([]string(nil), d.ExtractedEntities.FundingStage...),
		Technology:    append([]string(nil), d.ExtractedEntities.Technology...),
		Confidence:    d.ExtractedEntities.Confidence,
	}
	return out
}

// TokenUsage tracks inference token consumption.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
}

// Add accumulates another TokenUsage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}
