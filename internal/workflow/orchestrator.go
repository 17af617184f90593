// Package workflow drives raw texts through extraction, verification and
// profiling, and owns the verification queue.
package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/funding-cli/internal/cost"
	"github.com/sells-group/funding-cli/internal/extract"
	"github.com/sells-group/funding-cli/internal/metrics"
	"github.com/sells-group/funding-cli/internal/model"
	"github.com/sells-group/funding-cli/internal/profile"
	"github.com/sells-group/funding-cli/internal/queue"
	"github.com/sells-group/funding-cli/internal/resilience"
)

// Extractor turns raw text into drafts.
type Extractor interface {
	Process(ctx context.Context, rawText string) (model.FundingDraft, error)
	ProcessBatch(ctx context.Context, texts []string) []extract.BatchResult
}

// Verifier turns drafts into analysis results. It never fails.
type Verifier interface {
	Analyze(ctx context.Context, draft model.FundingDraft) *model.AnalysisResult
	AnalyzeBatch(ctx context.Context, drafts []model.FundingDraft) []*model.AnalysisResult
}

// Profiler builds company profiles for verified items.
type Profiler interface {
	ProfileCompany(ctx context.Context, name string) (*profile.Result, error)
}

// Dependency names used for gates and agent status.
const (
	DepInference = "anthropic"
	DepSearch    = "jina"
	DepFetch     = "fetch"
	DepResearch  = "perplexity"
	DepCRM       = "salesforce"
	DepPlaces    = "google_places"
)

// Agent names reported by GetWorkflowStats.
const (
	AgentExtractor = "extractor"
	AgentVerifier  = "verifier"
	AgentProfiler  = "profiler"
)

var agentDeps = map[string][]string{
	AgentExtractor: {DepInference},
	AgentVerifier:  {DepSearch, DepFetch, DepInference},
	AgentProfiler:  {DepCRM, DepResearch, DepSearch, DepPlaces},
}

// ProfilingFailedReason is the queue reason when the profiler gives up.
const ProfilingFailedReason = "profiling failed"

// Config tunes a workflow run.
type Config struct {
	MaxBatchSize        int
	ConfidenceThreshold float64
	// ProfileDelay is the pause between profiler calls in a batch.
	ProfileDelay time.Duration
}

type counter struct {
	processed atomic.Int64
	failed    atomic.Int64
}

// Orchestrator runs the complete pipeline.
type Orchestrator struct {
	cfg       Config
	extractor Extractor
	verifier  Verifier
	profiler  Profiler
	queue     queue.Store
	gates     *resilience.Gates
	tracker   *cost.Tracker
	metrics   *metrics.Metrics
	sleep     func(ctx context.Context, d time.Duration) error

	counters map[string]*counter

	mu        sync.Mutex
	lastRun   *model.WorkflowResult
	lastRunAt time.Time
	usage     model.TokenUsage
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGates reports dependency health in GetWorkflowStats.
func WithGates(g *resilience.Gates) Option { return func(o *Orchestrator) { o.gates = g } }

// WithTracker reports spend in GetWorkflowStats.
func WithTracker(t *cost.Tracker) Option { return func(o *Orchestrator) { o.tracker = t } }

// WithMetrics records queue and run metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// New creates an Orchestrator. The profiler may be nil, in which case
// verified items are returned without a profile.
func New(cfg Config, ex Extractor, ver Verifier, prof Profiler, q queue.Store, opts ...Option) *Orchestrator {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.75
	}
	o := &Orchestrator{
		cfg:       cfg,
		extractor: ex,
		verifier:  ver,
		profiler:  prof,
		queue:     q,
		sleep:     sleepCtx,
		counters: map[string]*counter{
			AgentExtractor: {},
			AgentVerifier:  {},
			AgentProfiler:  {},
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// approved reports whether an analysis skips manual review.
func (o *Orchestrator) approved(a *model.AnalysisResult) bool {
	return a.Verified && a.Confidence.Overall >= o.cfg.ConfidenceThreshold
}

// ExecuteCompleteWorkflow runs a batch end to end. It always returns a
// result; a fault part way through is recorded in Errors and the entries
// finished before it are kept.
func (o *Orchestrator) ExecuteCompleteWorkflow(ctx context.Context, rawTexts []string) (result *model.WorkflowResult) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "workflow"))

	result = &model.WorkflowResult{Success: true, Results: []model.ResultEntry{}, Errors: []string{}}
	if len(rawTexts) > o.cfg.MaxBatchSize {
		log.Warn("workflow: batch truncated",
			zap.Int("received", len(rawTexts)),
			zap.Int("max_batch_size", o.cfg.MaxBatchSize),
		)
		rawTexts = rawTexts[:o.cfg.MaxBatchSize]
	}
	entries := make([]*model.ResultEntry, len(rawTexts))

	defer func() {
		if r := recover(); r != nil {
			log.Error("workflow: panic during run",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("workflow: panic: %v", r))
		}
		o.finish(result, entries, start)
		log.Info("workflow: run complete",
			zap.Bool("success", result.Success),
			zap.Int("processed", result.ProcessedCount),
			zap.Int("verified", result.VerifiedCount),
			zap.Int("manual_review", result.ManualReviewCount),
			zap.Int("errors", result.ErrorCount),
			zap.Int64("duration_ms", result.ExecutionTimeMs),
		)
	}()

	phase := func(name string, fn func()) {
		ps := time.Now()
		fn()
		log.Info("workflow: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", time.Since(ps).Milliseconds()),
		)
	}

	var (
		drafts  []model.FundingDraft
		indices []int
	)
	phase("extract", func() {
		for _, br := range o.extractor.ProcessBatch(ctx, rawTexts) {
			if br.Err != nil {
				o.counters[AgentExtractor].failed.Add(1)
				msg := fmt.Sprintf("item %d: %v", br.Index, br.Err)
				result.Errors = append(result.Errors, msg)
				entries[br.Index] = &model.ResultEntry{Index: br.Index, Status: model.StatusError, Error: br.Err.Error()}
				continue
			}
			o.counters[AgentExtractor].processed.Add(1)
			drafts = append(drafts, br.Draft)
			indices = append(indices, br.Index)
		}
	})

	var verified []int
	phase("verify", func() {
		for i, a := range o.verifier.AnalyzeBatch(ctx, drafts) {
			idx := indices[i]
			o.counters[AgentVerifier].processed.Add(1)
			result.Usage.Add(a.Usage)
			if o.approved(a) {
				entries[idx] = &model.ResultEntry{Index: idx, Status: model.StatusComplete, Analysis: a}
				verified = append(verified, idx)
				continue
			}
			o.counters[AgentVerifier].failed.Add(1)
			entries[idx] = &model.ResultEntry{Index: idx, Status: model.StatusManualReviewRequired, Analysis: a}
			o.enqueue(ctx, result, reviewItem(a, o.cfg.ConfidenceThreshold))
		}
	})

	if o.profiler == nil {
		return result
	}
	phase("profile", func() {
		for n, idx := range verified {
			if n > 0 {
				if err := o.sleep(ctx, o.cfg.ProfileDelay); err != nil {
					result.Success = false
					result.Errors = append(result.Errors, eris.Wrap(err, "workflow: profiling interrupted").Error())
					return
				}
			}
			entry := entries[idx]
			entry.Profile = o.profile(ctx, result, entry.CompanyName())
		}
	})
	return result
}

// profile runs the profiler for one company and queues whatever it could
// not resolve.
func (o *Orchestrator) profile(ctx context.Context, result *model.WorkflowResult, company string) *model.CompanyProfile {
	res, err := o.profiler.ProfileCompany(ctx, company)
	if err != nil || res == nil {
		o.counters[AgentProfiler].failed.Add(1)
		zap.L().Warn("workflow: profiling failed",
			zap.String("company", company),
			zap.Error(err),
		)
		o.enqueue(ctx, result, model.QueueItem{
			Type:        model.QueueTypeCompanyProfiling,
			CompanyName: company,
			Reason:      ProfilingFailedReason,
			Priority:    model.PriorityMedium,
		})
		return nil
	}
	o.counters[AgentProfiler].processed.Add(1)
	for _, task := range res.Tasks {
		o.enqueue(ctx, result, task)
	}
	return res.Profile
}

// enqueue adds an item to the queue. A store failure is recorded against
// the run but does not stop it.
func (o *Orchestrator) enqueue(ctx context.Context, result *model.WorkflowResult, item model.QueueItem) {
	added, err := o.queue.Add(ctx, item)
	if err != nil {
		zap.L().Error("workflow: queue add failed",
			zap.String("company", item.CompanyName),
			zap.Error(err),
		)
		if result != nil {
			result.Errors = append(result.Errors, err.Error())
		}
		return
	}
	o.metrics.Queued(string(added.Type), string(added.Priority))
	zap.L().Debug("workflow: queued for review",
		zap.String("id", added.ID),
		zap.String("company", added.CompanyName),
		zap.String("type", string(added.Type)),
		zap.String("priority", string(added.Priority)),
		zap.String("reason", added.Reason),
	)
}

// finish assembles results: completed entries first, then manual review,
// then errors, each in input order.
func (o *Orchestrator) finish(result *model.WorkflowResult, entries []*model.ResultEntry, start time.Time) {
	rank := map[model.ResultStatus]int{
		model.StatusComplete:             0,
		model.StatusManualReviewRequired: 1,
		model.StatusError:                2,
	}
	for _, e := range entries {
		if e == nil {
			continue
		}
		result.Results = append(result.Results, *e)
		switch e.Status {
		case model.StatusComplete:
			result.VerifiedCount++
		case model.StatusManualReviewRequired:
			result.ManualReviewCount++
		case model.StatusError:
			result.ErrorCount++
		}
	}
	sort.SliceStable(result.Results, func(i, j int) bool {
		return rank[result.Results[i].Status] < rank[result.Results[j].Status]
	})
	result.ProcessedCount = len(result.Results)
	elapsed := time.Since(start)
	result.ExecutionTimeMs = elapsed.Milliseconds()
	o.metrics.WorkflowFinished(elapsed)

	o.mu.Lock()
	o.lastRun = result
	o.lastRunAt = time.Now().UTC()
	o.usage.Add(result.Usage)
	o.mu.Unlock()
}

// ProcessSingleArticle runs one text through the pipeline without batching
// or delays.
func (o *Orchestrator) ProcessSingleArticle(ctx context.Context, rawText string) (*model.SingleResult, error) {
	draft, err := o.extractor.Process(ctx, rawText)
	if err != nil {
		o.counters[AgentExtractor].failed.Add(1)
		return nil, err
	}
	o.counters[AgentExtractor].processed.Add(1)

	analysis := o.verifier.Analyze(ctx, draft)
	o.counters[AgentVerifier].processed.Add(1)
	o.mu.Lock()
	o.usage.Add(analysis.Usage)
	o.mu.Unlock()

	out := &model.SingleResult{Draft: draft, Analysis: *analysis}
	if !o.approved(analysis) {
		o.counters[AgentVerifier].failed.Add(1)
		o.enqueue(ctx, nil, reviewItem(analysis, o.cfg.ConfidenceThreshold))
		out.Queued = true
		return out, nil
	}
	if o.profiler != nil {
		out.Profile = o.profile(ctx, nil, analysis.FinalData.CompanyName)
	}
	return out, nil
}

// GetVerificationQueue returns the backlog, most urgent first.
func (o *Orchestrator) GetVerificationQueue(ctx context.Context) ([]model.QueueItem, error) {
	return o.queue.List(ctx)
}

// CompleteVerificationTask removes a task and reports whether it existed.
func (o *Orchestrator) CompleteVerificationTask(ctx context.Context, id string) (bool, error) {
	ok, err := o.queue.Complete(ctx, id)
	if err != nil {
		return false, eris.Wrapf(err, "workflow: complete task %s", id)
	}
	if ok {
		o.metrics.Completed()
		zap.L().Info("workflow: verification task completed", zap.String("id", id))
	}
	return ok, nil
}

// GetWorkflowStats summarises the queue, agent health and spend.
func (o *Orchestrator) GetWorkflowStats(ctx context.Context) (*model.WorkflowStats, error) {
	items, err := o.queue.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: stats")
	}
	stats := &model.WorkflowStats{
		QueueLength:     len(items),
		QueueByType:     make(map[model.QueueItemType]int),
		QueueByPriority: make(map[model.Priority]int),
	}
	for _, it := range items {
		stats.QueueByType[it.Type]++
		stats.QueueByPriority[it.Priority]++
	}

	var states map[string]resilience.BreakerState
	if o.gates != nil {
		states = o.gates.States()
		for dep, st := range states {
			o.metrics.BreakerState(dep, int(st))
		}
	}
	for _, name := range []string{AgentExtractor, AgentVerifier, AgentProfiler} {
		c := o.counters[name]
		status := model.AgentReady
		for _, dep := range agentDeps[name] {
			if st, ok := states[dep]; ok && st != resilience.BreakerClosed {
				status = model.AgentDegraded
			}
		}
		stats.Agents = append(stats.Agents, model.AgentStatus{
			Name:      name,
			Status:    status,
			Processed: c.processed.Load(),
			Failed:    c.failed.Load(),
		})
	}

	o.mu.Lock()
	stats.LastRun = o.lastRun
	stats.LastRunAt = o.lastRunAt
	stats.Usage = o.usage
	o.mu.Unlock()
	stats.EstimatedCostUSD = o.tracker.Totals().USD
	return stats, nil
}

// reviewItem builds the data_verification task for an analysis that did
// not pass.
func reviewItem(a *model.AnalysisResult, threshold float64) model.QueueItem {
	reason := a.ReviewReason
	if reason == "" {
		reason = fmt.Sprintf("Low confidence: overall %.2f below threshold %.2f", a.Confidence.Overall, threshold)
	}
	company := a.FinalData.CompanyName
	if company == "" {
		company = a.Draft.CompanyName
	}
	return model.QueueItem{
		Type:        model.QueueTypeDataVerification,
		CompanyName: company,
		Reason:      reason,
		Priority:    model.PriorityForConfidence(a.Confidence.Overall),
		Data: map[string]any{
			"final_data":    a.FinalData,
			"confidence":    a.Confidence.Overall,
			"source_count":  a.SourceCount,
			"discrepancies": a.Discrepancies,
		},
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
