// Package extract turns raw funding announcements into structured drafts
// using the inference service plus deterministic normalization.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/cost"
	"github.com/sells-group/funding-cli/internal/metrics"
	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/resilience"
	"github.com/sells-group/funding-cli/pkg/anthropic"
)

// ErrExtraction marks a text the inference service could not process.
var ErrExtraction = eris.New("extract: extraction failed")

// ExtractionError reports why one text could not be extracted. It matches
// ErrExtraction with errors.Is.
type ExtractionError struct {
	Index int
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("extract: item %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("extract: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExtraction.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// Config tunes the Extractor.
type Config struct {
	Model     string
	MaxTokens int64
	// ItemDelay is the pause between batch items.
	ItemDelay time.Duration
}

// Extractor produces FundingDrafts from raw text.
type Extractor struct {
	client   anthropic.Client
	cfg      Config
	taxonomy Taxonomy
	gate     *resilience.Gate
	tracker  *cost.Tracker
	metrics  *metrics.Metrics
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithGate routes inference calls through g.
func WithGate(g *resilience.Gate) Option { return func(e *Extractor) { e.gate = g } }

// WithTaxonomy replaces the default stage and technology taxonomy.
func WithTaxonomy(t Taxonomy) Option { return func(e *Extractor) { e.taxonomy = t } }

// WithTracker records inference spend.
func WithTracker(t *cost.Tracker) Option { return func(e *Extractor) { e.tracker = t } }

// WithMetrics records extraction counters.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Extractor) { e.metrics = m } }

// New creates an Extractor.
func New(client anthropic.Client, cfg Config, opts ...Option) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	e := &Extractor{
		client:   client,
		cfg:      cfg,
		taxonomy: DefaultTaxonomy(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process extracts a draft from one text. It fails with an ExtractionError
// only when the inference service cannot be reached; a reply without
// parseable JSON produces an empty zero-confidence draft.
func (e *Extractor) Process(ctx context.Context, rawText string) (model.FundingDraft, error) {
	return e.process(ctx, -1, rawText)
}

func (e *Extractor) process(ctx context.Context, index int, rawText string) (model.FundingDraft, error) {
	resp, err := e.call(ctx, entitySystemPrompt, entityUserPrompt(rawText))
	if err != nil {
		e.metrics.ExtractionFailed()
		return model.FundingDraft{}, &ExtractionError{Index: index, Err: err}
	}

	draft := model.FundingDraft{
		RawText:     rawText,
		Usage:       usageOf(resp),
		ExtractedAt: e.now().UTC(),
	}

	ents, ok := parseEntities(resp.Text())
	if !ok {
		zap.L().Warn("extract: no JSON in inference reply, using empty draft",
			zap.Int("index", index),
			zap.String("stop_reason", resp.StopReason),
		)
		e.metrics.Extracted()
		return draft, nil
	}

	draft.ExtractedEntities = ents
	e.applyEntities(&draft, ents)
	e.metrics.Extracted()
	return draft, nil
}

// applyEntities maps raw entities to draft fields and normalizes them.
func (e *Extractor) applyEntities(d *model.FundingDraft, ents model.Entities) {
	var orgs []string
	for _, o := range ents.Organizations {
		if s := strings.TrimSpace(o); s != "" {
			orgs = append(orgs, s)
		}
	}
	if len(orgs) > 0 {
		d.CompanyName = CompanyName(orgs[0])
	}
	for _, inv := range orgs[min(1, len(orgs)):] {
		d.AllInvestors = append(d.AllInvestors, InvestorName(inv))
	}
	if len(d.AllInvestors) > 0 {
		d.LeadInvestor = d.AllInvestors[0]
	}
	if money := firstNonEmpty(ents.Money); money != "" {
		d.Amount = ParseAmount(money)
	}
	d.FundingStage = e.taxonomy.Stage(firstNonEmpty(ents.FundingStage))
	d.Theme = e.taxonomy.Theme(firstNonEmpty(ents.Technology))
	d.Confidence = clamp01(ents.Confidence)
	d.Amount = max(d.Amount, 0)
}

// BatchResult is the outcome for one input of ProcessBatch.
type BatchResult struct {
	Index int
	Draft model.FundingDraft
	Err   error
}

// ProcessBatch extracts each text in order with the configured delay
// between items. A failed item is logged and the batch continues; the
// returned slice has one entry per input.
func (e *Extractor) ProcessBatch(ctx context.Context, texts []string) []BatchResult {
	out := make([]BatchResult, len(texts))
	for i, text := range texts {
		out[i].Index = i
		if i > 0 {
			if err := e.sleep(ctx, e.cfg.ItemDelay); err != nil {
				out[i].Err = &ExtractionError{Index: i, Err: err}
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			out[i].Err = &ExtractionError{Index: i, Err: err}
			continue
		}
		draft, err := e.process(ctx, i, text)
		if err != nil {
			zap.L().Warn("extract: batch item failed, skipping",
				zap.Int("index", i),
				zap.Error(err),
			)
			out[i].Err = err
			continue
		}
		out[i].Draft = draft
	}
	return out
}

// ExtractFields re-extracts the five funding fields from a corroborating
// source. company, when set, tells the model which event to report. The
// result is normalized the same way as Process so values group together.
func (e *Extractor) ExtractFields(ctx context.Context, company, content string) (model.FundingDraft, error) {
	resp, err := e.call(ctx, fieldSystemPrompt, fieldUserPrompt(company, content))
	if err != nil {
		return model.FundingDraft{}, &ExtractionError{Index: -1, Err: err}
	}
	out := model.FundingDraft{
		RawText:     content,
		Usage:       usageOf(resp),
		ExtractedAt: e.now().UTC(),
	}
	p, ok := parseFields(resp.Text())
	if !ok {
		return out, &ExtractionError{Index: -1, Err: eris.New("no JSON object in reply")}
	}

	out.CompanyName = CompanyName(p.CompanyName)
	out.Amount = ParseAmount(amountString(p.Amount))
	out.FundingStage = e.taxonomy.Stage(p.FundingStage)
	out.Theme = e.taxonomy.Theme(p.Theme)
	for _, inv := range p.AllInvestors {
		if s := strings.TrimSpace(inv); s != "" {
			out.AllInvestors = append(out.AllInvestors, InvestorName(s))
		}
	}
	out.LeadInvestor = InvestorName(strings.TrimSpace(p.LeadInvestor))
	if out.LeadInvestor == "" && len(out.AllInvestors) > 0 {
		out.LeadInvestor = out.AllInvestors[0]
	}
	return out, nil
}

// Describe writes a one or two sentence company description from article
// content. An empty string means the content did not describe the company.
func (e *Extractor) Describe(ctx context.Context, company, content string) (string, error) {
	resp, err := e.call(ctx, describeSystemPrompt, describeUserPrompt(company, content))
	if err != nil {
		return "", eris.Wrap(err, "extract: describe")
	}
	desc := strings.TrimSpace(resp.Text())
	if strings.EqualFold(desc, "unknown") {
		return "", nil
	}
	return desc, nil
}

func (e *Extractor) call(ctx context.Context, system, user string) (*anthropic.MessageResponse, error) {
	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		System:      anthropic.CachedSystem(system),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	}
	resp, err := resilience.Call(ctx, e.gate, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "inference call")
	}
	if resp == nil {
		return nil, eris.New("inference call: empty response")
	}
	u := resp.Usage
	e.tracker.Inference(e.cfg.Model, int(u.InputTokens), int(u.OutputTokens), int(u.CacheCreationInputTokens), int(u.CacheReadInputTokens))
	return resp, nil
}

func usageOf(resp *anthropic.MessageResponse) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
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
