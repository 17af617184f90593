package verify

import (
	"fmt"
	"sort"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/model"
)

// observation is one set of field values with the reliability of where it
// came from. Observation 0 is always the draft.
type observation struct {
	draft       model.FundingDraft
	reliability float64
}

// groupField collects the observed values of one field, keyed by the
// field's normalizer, in first-seen order. Empty values vote like any
// other value.
func groupField(desc model.FieldDescriptor, obs []observation) []model.FieldObservation {
	var groups []model.FieldObservation
	pos := make(map[string]int)
	for i, o := range obs {
		raw := desc.Get(o.draft)
		key := desc.Normalize(raw)
		gi, ok := pos[key]
		if !ok {
			gi = len(groups)
			pos[key] = gi
			groups = append(groups, model.FieldObservation{Value: raw})
		}
		g := &groups[gi]
		g.Count++
		g.SourceIndices = append(g.SourceIndices, i)
		g.AccumulatedReliability += o.reliability
	}
	return groups
}

// top returns the group with the highest count; ties go to the first seen.
func top(groups []model.FieldObservation) (model.FieldObservation, bool) {
	if len(groups) == 0 {
		return model.FieldObservation{}, false
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if g.Count > best.Count {
			best = g
		}
	}
	return best, true
}

// fieldScore is weighted consensus plus reliability of the winning value,
// capped.
func fieldScore(cfg config.VerifyConfig, best model.FieldObservation, total int) float64 {
	if total == 0 {
		return 0
	}
	consensus := float64(best.Count) / float64(total)
	reliability := best.AccumulatedReliability / float64(total)
	score := cfg.ConsensusWeight*consensus + cfg.ReliabilityWeight*reliability
	return min(max(score, 0), cfg.ConfidenceCap)
}

// discrepancy reports a disputed field, if any.
func discrepancy(cfg config.VerifyConfig, field model.Field, groups []model.FieldObservation, total int) (model.Discrepancy, bool) {
	if len(groups) < 2 || total == 0 {
		return model.Discrepancy{}, false
	}
	cands := make([]model.CandidateValue, len(groups))
	for i, g := range groups {
		cands[i] = model.CandidateValue{
			Value:     g.Value,
			Count:     g.Count,
			Consensus: float64(g.Count) / float64(total),
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Consensus > cands[j].Consensus })

	lead := cands[0]
	if lead.Consensus >= cfg.DiscrepancyConsensus {
		return model.Discrepancy{}, false
	}
	d := model.Discrepancy{Field: field, Candidates: cands}
	if lead.Consensus > cfg.UseTopConsensus {
		d.Recommendation = fmt.Sprintf("Use most common value: %s", lead.Value)
	} else {
		d.Recommendation = "Manual review required: no clear consensus"
		d.ManualReview = true
	}
	return d, true
}

// reconciliation is the outcome of reconciling every field.
type reconciliation struct {
	confidence    model.ConfidenceScore
	discrepancies []model.Discrepancy
	finalData     model.FundingDraft
}

func reconcile(cfg config.VerifyConfig, obs []observation) reconciliation {
	total := len(obs)
	out := reconciliation{
		confidence:    model.ConfidenceScore{Fields: make(map[model.Field]float64, len(model.FieldDescriptors))},
		discrepancies: []model.Discrepancy{},
	}
	if total == 0 {
		return out
	}
	out.finalData = obs[0].draft.Clone()

	var sum float64
	for _, desc := range model.FieldDescriptors {
		groups := groupField(desc, obs)
		best, _ := top(groups)
		score := fieldScore(cfg, best, total)
		out.confidence.Fields[desc.Field] = score
		sum += score

		if d, ok := discrepancy(cfg, desc.Field, groups, total); ok {
			out.discrepancies = append(out.discrepancies, d)
		}
		desc.Set(&out.finalData, best.Value)
	}
	out.confidence.Overall = sum / float64(len(model.FieldDescriptors))
	return out
}

// reviewReason returns the first triggered review condition, or "" when
// the result can be auto-approved. Conditions are checked in priority
// order: low confidence, too few sources, an unresolved discrepancy.
func reviewReason(cfg config.VerifyConfig, overall float64, sourceCount int, discrepancies []model.Discrepancy) string {
	if overall < cfg.ConfidenceThreshold {
		return fmt.Sprintf("Low confidence: overall %.2f below threshold %.2f", overall, cfg.ConfidenceThreshold)
	}
	if sourceCount < cfg.MinSources {
		return fmt.Sprintf("Insufficient sources: %d found, %d required", sourceCount, cfg.MinSources)
	}
	for _, d := range discrepancies {
		if d.ManualReview {
			return fmt.Sprintf("Unresolved discrepancy in %s: %s", d.Field, d.Recommendation)
		}
	}
	return ""
}
