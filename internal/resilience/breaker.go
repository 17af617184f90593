// Package resilience wraps calls to external dependencies with rate
// limiting, retry with backoff and circuit breaking.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cool-down elapses.
	BreakerOpen
	// BreakerHalfOpen lets probe calls through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned for calls rejected by an open breaker.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig controls when a breaker trips and recovers.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the
	// breaker. Default: 5.
	FailureThreshold int
	// CoolDown is how long the breaker stays open. Default: 30s.
	CoolDown time.Duration
	// ProbeSuccesses closes a half-open breaker. Default: 1.
	ProbeSuccesses int
	// ShouldTrip decides which errors count as failures. Default: any error
	// except context cancellation.
	ShouldTrip func(err error) bool
	// OnStateChange observes transitions.
	OnStateChange func(from, to BreakerState)
}

// DefaultBreakerConfig returns the breaker policy used for external APIs.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, CoolDown: 30 * time.Second, ProbeSuccesses: 1}
}

// Breaker is a circuit breaker for one dependency.
type Breaker struct {
	cfg BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = def.CoolDown
	}
	if cfg.ProbeSuccesses <= 0 {
		cfg.ProbeSuccesses = def.ProbeSuccesses
	}
	if cfg.ShouldTrip == nil {
		cfg.ShouldTrip = func(err error) bool {
			return !eris.Is(err, context.Canceled)
		}
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute runs fn through b and records the outcome.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrCircuitOpen
	}
	val, err := fn(ctx)
	b.record(err)
	if err != nil {
		return zero, err
	}
	return val, nil
}

// State returns the current state, reporting half-open once the cool-down
// has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.CoolDown {
		return BreakerHalfOpen
	}
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures, b.successes = 0, 0
	b.setState(BreakerClosed)
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.cfg.CoolDown {
		return false
	}
	b.successes = 0
	b.setState(BreakerHalfOpen)
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !b.cfg.ShouldTrip(err) {
		if b.state == BreakerHalfOpen {
			b.successes++
			if b.successes < b.cfg.ProbeSuccesses {
				return
			}
			b.setState(BreakerClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

// setState must be called with mu held.
func (b *Breaker) setState(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
