package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sells-group/funding-cli/internal/model"
)

// cleanJSON strips markdown fences and returns the span from the first '{'
// to the last '}'.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseEntities decodes the entity payload. ok is false when the response
// holds no parseable JSON object.
func parseEntities(text string) (model.Entities, bool) {
	var ents model.Entities
	if err := json.Unmarshal([]byte(cleanJSON(text)), &ents); err != nil {
		return model.Entities{}, false
	}
	return ents, true
}

// fieldPayload is the five-field reply. Amount arrives either as a string
// or a bare number.
type fieldPayload struct {
	CompanyName  string          `json:"companyName"`
	Amount       json.RawMessage `json:"amount"`
	FundingStage string          `json:"fundingStage"`
	LeadInvestor string          `json:"leadInvestor"`
	AllInvestors []string        `json:"allInvestors"`
	Theme        string          `json:"theme"`
}

func parseFields(text string) (fieldPayload, bool) {
	var p fieldPayload
	if err := json.Unmarshal([]byte(cleanJSON(text)), &p); err != nil {
		return fieldPayload{}, false
	}
	return p, true
}

// amountString renders a raw amount value for ParseAmount.
func amountString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func firstNonEmpty(vals []string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
