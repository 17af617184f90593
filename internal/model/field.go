package model

import (
	"strconv"
	"strings"
)

// Field identifies one of the reconciled funding fields.
type Field string

const (
	FieldCompanyName  Field = "companyName"
	FieldAmount       Field = "amount"
	FieldFundingStage Field = "fundingStage"
	FieldLeadInvestor Field = "leadInvestor"
	FieldTheme        Field = "theme"
)

// FieldDescriptor describes how a field is read from a draft, normalized for
// voting and written back into a corrected draft.
type FieldDescriptor struct {
	Field     Field
	Weight    float64
	Get       func(d FundingDraft) string
	Set       func(d *FundingDraft, value string)
	Normalize func(value string) string
}

// FieldDescriptors lists every reconciled field in scoring order. The overall
// confidence is the plain mean over exactly this list.
var FieldDescriptors = []FieldDescriptor{
	{
		Field:     FieldCompanyName,
		Get:       func(d FundingDraft) string { return d.CompanyName },
		Set:       func(d *FundingDraft, v string) { d.CompanyName = v },
		Normalize: normalizeText,
	},
	{
		Field: FieldAmount,
		Get:   func(d FundingDraft) string { return strconv.FormatInt(d.Amount, 10) },
		Set: func(d *FundingDraft, v string) {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				d.Amount = n
			}
		},
		Normalize: normalizeText,
	},
	{
		Field:     FieldFundingStage,
		Get:       func(d FundingDraft) string { return d.FundingStage },
		Set:       func(d *FundingDraft, v string) { d.FundingStage = v },
		Normalize: normalizeText,
	},
	{
		Field: FieldLeadInvestor,
		Get:   func(d FundingDraft) string { return d.LeadInvestor },
		Set: func(d *FundingDraft, v string) {
			d.LeadInvestor = v
			if v == "" {
				return
			}
			// Keep the lead first in the investor list.
			rest := make([]string, 0, len(d.AllInvestors))
			for _, inv := range d.AllInvestors {
				if !strings.EqualFold(inv, v) {
					rest = append(rest, inv)
				}
			}
			d.AllInvestors = append([]string{v}, rest...)
		},
		Normalize: normalizeText,
	},
	{
		Field:     FieldTheme,
		Get:       func(d FundingDraft) string { return d.Theme },
		Set:       func(d *FundingDraft, v string) { d.Theme = v },
		Normalize: normalizeText,
	},
}

// normalizeText is the grouping key used for consensus voting.
func normalizeText(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
