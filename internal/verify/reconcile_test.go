package verify

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/model"
)

func testConfig() config.VerifyConfig {
	return DefaultConfig()
}

func acmeDraft() model.FundingDraft {
	return model.FundingDraft{
		CompanyName:  "Acme Cyber",
		Amount:       12_000_000,
		FundingStage: "Series A",
		LeadInvestor: "Foo Ventures",
		AllInvestors: []string{"Foo Ventures"},
		Theme:        "Cybersecurity",
		Confidence:   0.9,
	}
}

func withStage(d model.FundingDraft, stage string) model.FundingDraft {
	d = d.Clone()
	d.FundingStage = stage
	return d
}

func obsOf(rel float64, drafts ...model.FundingDraft) []observation {
	out := make([]observation, len(drafts))
	for i, d := range drafts {
		out[i] = observation{draft: d, reliability: rel}
	}
	return out
}

func TestGroupField(t *testing.T) {
	t.Parallel()
	desc := model.FieldDescriptors[2] // fundingStage
	obs := []observation{
		{draft: withStage(acmeDraft(), "Series A"), reliability: 0.6},
		{draft: withStage(acmeDraft(), "series a "), reliability: 0.9},
		{draft: withStage(acmeDraft(), "Series B"), reliability: 0.8},
	}

	groups := groupField(desc, obs)
	require.Len(t, groups, 2)
	assert.Equal(t, "Series A", groups[0].Value)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []int{0, 1}, groups[0].SourceIndices)
	assert.InDelta(t, 1.5, groups[0].AccumulatedReliability, 1e-9)
	assert.Equal(t, "Series B", groups[1].Value)
	assert.Equal(t, []int{2}, groups[1].SourceIndices)
}

func TestTop_TieGoesToFirstSeen(t *testing.T) {
	t.Parallel()
	best, ok := top([]model.FieldObservation{
		{Value: "Series A", Count: 2},
		{Value: "Series B", Count: 2},
	})
	require.True(t, ok)
	assert.Equal(t, "Series A", best.Value)

	_, ok = top(nil)
	assert.False(t, ok)
}

func TestFieldScore(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	// Draft only: full consensus, draft reliability.
	assert.InDelta(t, 0.88, fieldScore(cfg, model.FieldObservation{Count: 1, AccumulatedReliability: 0.6}, 1), 1e-9)
	// Unanimous highly reliable sources hit the cap.
	assert.InDelta(t, 0.95, fieldScore(cfg, model.FieldObservation{Count: 3, AccumulatedReliability: 3}, 3), 1e-9)
	// Half agreement.
	assert.InDelta(t, 0.7*0.5+0.3*0.75/2, fieldScore(cfg, model.FieldObservation{Count: 1, AccumulatedReliability: 0.75}, 2), 1e-9)
	assert.Zero(t, fieldScore(cfg, model.FieldObservation{}, 0))
}

func TestFieldScore_ZeroReliabilityWeight(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.ReliabilityWeight = 0

	assert.InDelta(t, 0.7, fieldScore(cfg, model.FieldObservation{Count: 1, AccumulatedReliability: 0.6}, 1), 1e-9)
	v := New(cfg, nil, &stubExtractor{})
	assert.Zero(t, v.cfg.ReliabilityWeight)
}

func TestDiscrepancy(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	tests := []struct {
		name       string
		groups     []model.FieldObservation
		total      int
		wantOK     bool
		wantManual bool
		wantRec    string
	}{
		{
			name:   "single value",
			groups: []model.FieldObservation{{Value: "A", Count: 3}},
			total:  3,
		},
		{
			name:   "strong majority",
			groups: []model.FieldObservation{{Value: "A", Count: 3}, {Value: "B", Count: 1}},
			total:  4,
		},
		{
			name:    "weak majority",
			groups:  []model.FieldObservation{{Value: "B", Count: 1}, {Value: "A", Count: 2}},
			total:   3,
			wantOK:  true,
			wantRec: "Use most common value: A",
		},
		{
			name:       "even split",
			groups:     []model.FieldObservation{{Value: "A", Count: 2}, {Value: "B", Count: 2}},
			total:      4,
			wantOK:     true,
			wantManual: true,
			wantRec:    "Manual review required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, ok := discrepancy(cfg, model.FieldFundingStage, tt.groups, tt.total)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantManual, d.ManualReview)
			assert.Contains(t, d.Recommendation, tt.wantRec)
			for i := 1; i < len(d.Candidates); i++ {
				assert.GreaterOrEqual(t, d.Candidates[i-1].Consensus, d.Candidates[i].Consensus)
			}
		})
	}
}

func TestReconcile_FinalDataUsesMostCommonValue(t *testing.T) {
	t.Parallel()
	draft := withStage(acmeDraft(), "Seed Round")
	rec := reconcile(testConfig(), obsOf(0.9,
		draft,
		withStage(acmeDraft(), "Series A"),
		withStage(acmeDraft(), "Series A"),
	))

	assert.Equal(t, "Series A", rec.finalData.FundingStage)
	assert.Equal(t, "Seed Round", draft.FundingStage, "draft must not change")
	assert.Equal(t, int64(12_000_000), rec.finalData.Amount)
	require.Len(t, rec.discrepancies, 1)
	assert.Equal(t, model.FieldFundingStage, rec.discrepancies[0].Field)
	assert.False(t, rec.discrepancies[0].ManualReview)
}

func randomDraft(r *rand.Rand) model.FundingDraft {
	pick := func(vals ...string) string { return vals[r.Intn(len(vals))] }
	return model.FundingDraft{
		CompanyName:  pick("Acme", "Acme", "ACME", "Acme Corp"),
		Amount:       []int64{0, 12_000_000, 12_000_000, 15_000_000}[r.Intn(4)],
		FundingStage: pick("Series A", "Series B", ""),
		LeadInvestor: pick("Foo Ventures", "Bar Capital"),
		Theme:        pick("Cybersecurity", "Artificial Intelligence"),
	}
}

func TestReconcile_ConfidenceBoundsAndMean(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	r := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		n := 1 + r.Intn(11)
		obs := make([]observation, n)
		for i := range obs {
			obs[i] = observation{draft: randomDraft(r), reliability: r.Float64()}
		}
		rec := reconcile(cfg, obs)

		require.Len(t, rec.confidence.Fields, len(model.FieldDescriptors))
		var sum float64
		for _, desc := range model.FieldDescriptors {
			s := rec.confidence.Fields[desc.Field]
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 0.95)
			sum += s
		}
		assert.InDelta(t, sum/float64(len(model.FieldDescriptors)), rec.confidence.Overall, 1e-9)
		assert.LessOrEqual(t, rec.confidence.Overall, 0.95)
	}
}

func TestReconcile_ConsensusMonotonicity(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	r := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		// Uniform reliability: an agreeing source can only help.
		rel := 0.5 + r.Float64()/2
		n := 1 + r.Intn(8)
		obs := make([]observation, n)
		for i := range obs {
			obs[i] = observation{draft: randomDraft(r), reliability: rel}
		}

		for _, desc := range model.FieldDescriptors {
			before := fieldScore(cfg, mustTop(t, groupField(desc, obs)), len(obs))

			best := mustTop(t, groupField(desc, obs))
			agreeing := randomDraft(r)
			desc.Set(&agreeing, best.Value)
			more := append(append([]observation(nil), obs...), observation{draft: agreeing, reliability: rel})
			after := fieldScore(cfg, mustTop(t, groupField(desc, more)), len(more))

			assert.GreaterOrEqual(t, after+1e-12, before, "field %s run %d", desc.Field, run)
		}
	}
}

func mustTop(t *testing.T, groups []model.FieldObservation) model.FieldObservation {
	t.Helper()
	best, ok := top(groups)
	require.True(t, ok)
	return best
}

func TestReviewReason(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	manual := []model.Discrepancy{{Field: model.FieldFundingStage, ManualReview: true, Recommendation: "Manual review required: no clear consensus"}}
	advisory := []model.Discrepancy{{Field: model.FieldTheme, Recommendation: "Use most common value: X"}}

	tests := []struct {
		name          string
		overall       float64
		sources       int
		discrepancies []model.Discrepancy
		want          string
	}{
		{name: "all clear", overall: 0.9, sources: 3, discrepancies: advisory},
		{name: "low confidence", overall: 0.5, sources: 3, want: "Low confidence"},
		{name: "insufficient sources", overall: 0.9, sources: 1, want: "Insufficient sources"},
		{name: "manual discrepancy", overall: 0.9, sources: 3, discrepancies: manual, want: "Unresolved discrepancy in fundingStage"},
		{name: "low confidence wins", overall: 0.2, sources: 1, discrepancies: manual, want: "Low confidence"},
		{name: "sources beat discrepancy", overall: 0.9, sources: 1, discrepancies: manual, want: "Insufficient sources"},
		{name: "threshold is inclusive", overall: 0.75, sources: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reviewReason(cfg, tt.overall, tt.sources, tt.discrepancies)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestReviewReason_IffAnyCondition(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	r := rand.New(rand.NewSource(3))

	for i := 0; i < 500; i++ {
		overall := math.Round(r.Float64()*100) / 100
		sources := r.Intn(4)
		var ds []model.Discrepancy
		hasManual := r.Intn(2) == 0
		if hasManual {
			ds = append(ds, model.Discrepancy{Field: model.FieldTheme, ManualReview: true})
		}
		want := overall < cfg.ConfidenceThreshold || sources < cfg.MinSources || hasManual
		assert.Equal(t, want, reviewReason(cfg, overall, sources, ds) != "")
	}
}
