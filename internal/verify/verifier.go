// Package verify corroborates extracted funding drafts against
// independently discovered sources and decides whether a draft can be
// auto-approved or needs a human.
package verify

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/funding-cli/internal/config"
	"github.com/sells-group/funding-cli/internal/cost"
	"github.com/sells-group/funding-cli/internal/metrics"
	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/internal/scrape"
	"github.com/sells-group/funding-cli/pkg/jina"
)

// FailsafeConfidence is the overall confidence reported when verification
// itself breaks.
const FailsafeConfidence = 0.1

// FieldExtractor re-extracts the funding fields from source content.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, company, content string) (model.FundingDraft, error)
}

// Verifier checks drafts against corroborating sources.
type Verifier struct {
	cfg         config.VerifyConfig
	search      jina.Client
	fetcher     scrape.Fetcher
	extractor   FieldExtractor
	reliability ReliabilityTable
	keywords    *keywordMatcher
	searchGate  *resilience.Gate
	tracker     *cost.Tracker
	metrics     *metrics.Metrics
	queryDelay  time.Duration
	itemDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithFetcher sets the page fetcher used for source content.
func WithFetcher(f scrape.Fetcher) Option { return func(v *Verifier) { v.fetcher = f } }

// WithReliability replaces the domain reliability table.
func WithReliability(t ReliabilityTable) Option { return func(v *Verifier) { v.reliability = t } }

// WithSearchGate routes search calls through g.
func WithSearchGate(g *resilience.Gate) Option { return func(v *Verifier) { v.searchGate = g } }

// WithTracker records search spend.
func WithTracker(t *cost.Tracker) Option { return func(v *Verifier) { v.tracker = t } }

// WithMetrics records verification outcomes.
func WithMetrics(m *metrics.Metrics) Option { return func(v *Verifier) { v.metrics = m } }

// WithItemDelay sets the pause between drafts in AnalyzeBatch.
func WithItemDelay(d time.Duration) Option { return func(v *Verifier) { v.itemDelay = d } }

// New creates a Verifier. cfg is used as given; callers outside config
// loading start from DefaultConfig.
func New(cfg config.VerifyConfig, search jina.Client, extractor FieldExtractor, opts ...Option) *Verifier {
	v := &Verifier{
		cfg:         cfg,
		search:      search,
		extractor:   extractor,
		reliability: DefaultReliability(cfg.DefaultReliability),
		keywords:    newKeywordMatcher(fundingKeywords),
		queryDelay:  time.Duration(cfg.QueryDelayMs) * time.Millisecond,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// DefaultConfig returns the settings config.Load falls back to.
func DefaultConfig() config.VerifyConfig {
	return config.VerifyConfig{
		ConfidenceThreshold:  0.75,
		ConsensusWeight:      0.7,
		ReliabilityWeight:    0.3,
		ConfidenceCap:        0.95,
		MinSources:           2,
		DiscrepancyConsensus: 0.7,
		UseTopConsensus:      0.5,
		MaxSources:           10,
		MaxQueries:           4,
		ResultsPerQuery:      5,
		SourceContentChars:   2000,
		DefaultReliability:   0.60,
		DraftReliability:     0.60,
		ReextractConcurrency: 4,
	}
}

// Analyze verifies one draft. It never fails: internal errors and panics
// produce a failsafe result that requires manual review.
func (v *Verifier) Analyze(ctx context.Context, draft model.FundingDraft) (result *model.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("verify: panic during analysis",
				zap.String("company", draft.CompanyName),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result = v.failsafe(draft, eris.Errorf("verify: panic: %v", r))
		}
	}()

	res, err := v.analyze(ctx, draft)
	if err != nil {
		zap.L().Error("verify: analysis failed",
			zap.String("company", draft.CompanyName),
			zap.Error(err),
		)
		return v.failsafe(draft, err)
	}
	return res
}

func (v *Verifier) analyze(ctx context.Context, draft model.FundingDraft) (*model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "verify: analyze")
	}

	sources, extracted, err := v.reextract(ctx, draft, v.discover(ctx, draft))
	if err != nil {
		return nil, err
	}

	obs := make([]observation, 0, len(extracted)+1)
	obs = append(obs, observation{draft: draft, reliability: v.cfg.DraftReliability})
	usage := draft.Usage
	for i, ex := range extracted {
		obs = append(obs, observation{draft: ex, reliability: sources[i].Reliability})
		usage.Add(ex.Usage)
	}

	rec := reconcile(v.cfg, obs)
	reason := reviewReason(v.cfg, rec.confidence.Overall, len(obs), rec.discrepancies)
	manual := reason != ""

	res := &model.AnalysisResult{
		Verified:             !manual,
		Confidence:           rec.confidence,
		Discrepancies:        rec.discrepancies,
		Sources:              sources,
		SourceCount:          len(obs),
		Draft:                draft,
		FinalData:            rec.finalData,
		RequiresManualReview: manual,
		ReviewReason:         reason,
		Usage:                usage,
	}

	outcome := "verified"
	if manual {
		outcome = "manual_review"
	}
	v.metrics.Verified(outcome, res.Confidence.Overall, len(sources))
	zap.L().Info("verify: draft analyzed",
		zap.String("company", draft.CompanyName),
		zap.Float64("overall", res.Confidence.Overall),
		zap.Int("source_count", res.SourceCount),
		zap.Int("discrepancies", len(res.Discrepancies)),
		zap.Bool("verified", res.Verified),
	)
	return res, nil
}

// reextract runs field extraction over each source with a bounded pool.
// Sources whose extraction fails are dropped; the survivors keep their
// discovery order and line up index-for-index with the extracted drafts.
// A panic in any worker is returned as an error.
func (v *Verifier) reextract(ctx context.Context, draft model.FundingDraft, sources []model.VerificationSource) ([]model.VerificationSource, []model.FundingDraft, error) {
	if len(sources) == 0 {
		return nil, nil, nil
	}

	results := make([]model.FundingDraft, len(sources))
	failed := make([]bool, len(sources))

	var g errgroup.Group
	g.SetLimit(v.cfg.ReextractConcurrency)
	for i, src := range sources {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = eris.Errorf("verify: panic re-extracting %s: %v", src.URL, r)
				}
			}()
			content := truncateRunes(src.Content, v.cfg.SourceContentChars)
			ex, exErr := v.extractor.ExtractFields(ctx, draft.CompanyName, content)
			if exErr != nil {
				zap.L().Warn("verify: source re-extraction failed",
					zap.String("company", draft.CompanyName),
					zap.String("url", src.URL),
					zap.Error(exErr),
				)
				failed[i] = true
				return nil
			}
			results[i] = ex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	keptSources := make([]model.VerificationSource, 0, len(sources))
	kept := make([]model.FundingDraft, 0, len(sources))
	for i := range sources {
		if failed[i] {
			continue
		}
		keptSources = append(keptSources, sources[i])
		kept = append(kept, results[i])
	}
	return keptSources, kept, nil
}

// failsafe is the result reported when verification cannot complete.
func (v *Verifier) failsafe(draft model.FundingDraft, err error) *model.AnalysisResult {
	fields := make(map[model.Field]float64, len(model.FieldDescriptors))
	for _, desc := range model.FieldDescriptors {
		fields[desc.Field] = FailsafeConfidence
	}
	v.metrics.Verified("failsafe", FailsafeConfidence, 0)
	return &model.AnalysisResult{
		Confidence:           model.ConfidenceScore{Fields: fields, Overall: FailsafeConfidence},
		Discrepancies:        []model.Discrepancy{},
		SourceCount:          1,
		Draft:                draft,
		FinalData:            draft.Clone(),
		RequiresManualReview: true,
		ReviewReason:         fmt.Sprintf("Verification failed: %v", err),
		Usage:                draft.Usage,
	}
}

// AnalyzeBatch verifies drafts in order with the configured delay between
// items. The result has one entry per draft.
func (v *Verifier) AnalyzeBatch(ctx context.Context, drafts []model.FundingDraft) []*model.AnalysisResult {
	out := make([]*model.AnalysisResult, len(drafts))
	for i, d := range drafts {
		if i > 0 {
			if err := v.sleep(ctx, v.itemDelay); err != nil {
				out[i] = v.failsafe(d, eris.Wrap(err, "verify: batch interrupted"))
				continue
			}
		}
		out[i] = v.Analyze(ctx, d)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
