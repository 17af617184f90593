// Package metrics exposes Prometheus collectors for the funding pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all pipeline metrics.
	Namespace = "funding"
)

// Metrics holds the pipeline collectors. All methods are safe on a nil
// receiver so components can run without metrics.
type Metrics struct {
	DraftsExtracted       prometheus.Counter
	ExtractionFailures    prometheus.Counter
	VerificationDecisions *prometheus.CounterVec
	ConfidenceOverall     prometheus.Histogram
	SourcesDiscovered     prometheus.Histogram
	QueueAdditions        *prometheus.CounterVec
	QueueCompletions      prometheus.Counter
	ProfilesBuilt         *prometheus.CounterVec
	WorkflowDuration      prometheus.Histogram
	DependencyState       *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors on reg, or on the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		DraftsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "extract",
			Name:      "drafts_total",
			Help:      "Drafts produced by the extractor.",
		}),
		ExtractionFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "extract",
			Name:      "failures_total",
			Help:      "Texts the extractor could not process.",
		}),
		VerificationDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "verify",
			Name:      "decisions_total",
			Help:      "Verification decisions, labeled by outcome.",
		}, []string{"outcome"}),
		ConfidenceOverall: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "verify",
			Name:      "confidence_overall",
			Help:      "Overall confidence of verified drafts.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95},
		}),
		SourcesDiscovered: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "verify",
			Name:      "sources_discovered",
			Help:      "Corroborating sources kept per draft.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		QueueAdditions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "queue",
			Name:      "additions_total",
			Help:      "Items added to the verification queue.",
		}, []string{"type", "priority"}),
		QueueCompletions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "queue",
			Name:      "completions_total",
			Help:      "Verification tasks completed.",
		}),
		ProfilesBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "profile",
			Name:      "profiles_total",
			Help:      "Company profiles built, labeled by the highest tier reached and completeness.",
		}, []string{"tier", "complete"}),
		WorkflowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "workflow",
			Name:      "duration_seconds",
			Help:      "Wall time of complete workflow runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		DependencyState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open).",
		}, []string{"dependency"}),
	}
}

// Extracted counts a draft.
func (m *Metrics) Extracted() {
	if m == nil {
		return
	}
	m.DraftsExtracted.Inc()
}

// ExtractionFailed counts an extraction failure.
func (m *Metrics) ExtractionFailed() {
	if m == nil {
		return
	}
	m.ExtractionFailures.Inc()
}

// Verified records a verification outcome with its overall confidence and
// the number of sources kept.
func (m *Metrics) Verified(outcome string, overall float64, sources int) {
	if m == nil {
		return
	}
	m.VerificationDecisions.WithLabelValues(outcome).Inc()
	m.ConfidenceOverall.Observe(overall)
	m.SourcesDiscovered.Observe(float64(sources))
}

// Queued counts a queue addition.
func (m *Metrics) Queued(itemType, priority string) {
	if m == nil {
		return
	}
	m.QueueAdditions.WithLabelValues(itemType, priority).Inc()
}

// Completed counts a completed verification task.
func (m *Metrics) Completed() {
	if m == nil {
		return
	}
	m.QueueCompletions.Inc()
}

// Profiled counts a built profile.
func (m *Metrics) Profiled(tier string, complete bool) {
	if m == nil {
		return
	}
	c := "false"
	if complete {
		c = "true"
	}
	m.ProfilesBuilt.WithLabelValues(tier, c).Inc()
}

// WorkflowFinished observes a workflow run duration.
func (m *Metrics) WorkflowFinished(d time.Duration) {
	if m == nil {
		return
	}
	m.WorkflowDuration.Observe(d.Seconds())
}

// BreakerState sets the gauge for one dependency.
func (m *Metrics) BreakerState(dependency string, state int) {
	if m == nil {
		return
	}
	m.DependencyState.WithLabelValues(dependency).Set(float64(state))
}
