package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_NilGate(t *testing.T) {
	t.Parallel()

	var g *Gate
	val, err := Call(context.Background(), g, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, val)
	assert.Equal(t, BreakerClosed, g.State())
}

func TestCall_RetriesTransient(t *testing.T) {
	t.Parallel()

	g := NewGate("search", GateConfig{Retry: fastRetry(3)})
	calls := 0
	val, err := Call(context.Background(), g, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("429"), 429)
		}
		return "hit", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hit", val)
	assert.Equal(t, 2, calls)
}

func TestCall_OneInFlight(t *testing.T) {
	t.Parallel()

	g := NewGate("inference", GateConfig{Retry: fastRetry(1)})
	var current, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Call(context.Background(), g, func(context.Context) (struct{}, error) {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&current, -1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func TestCall_OpenBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	g := NewGate("fetch", GateConfig{
		Retry:   fastRetry(1),
		Breaker: BreakerConfig{FailureThreshold: 2, CoolDown: time.Hour},
	})
	boom := func(context.Context) (int, error) { return 0, errors.New("down") }
	_, _ = Call(context.Background(), g, boom)
	_, _ = Call(context.Background(), g, boom)
	assert.Equal(t, BreakerOpen, g.State())

	_, err := Call(context.Background(), g, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCall_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	g := NewGate("search", GateConfig{RPS: 0.001, Burst: 1, Retry: fastRetry(1)})
	_, err := Call(context.Background(), g, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Call(ctx, g, func(context.Context) (int, error) { return 1, nil })
	assert.Error(t, err)
}

func TestGates_Registry(t *testing.T) {
	t.Parallel()

	gs := NewGates()
	gs.Add(NewGate("search", GateConfig{}))
	gs.Add(NewGate("inference", GateConfig{}))

	assert.Equal(t, []string{"inference", "search"}, gs.Names())
	assert.NotNil(t, gs.Get("search"))
	assert.Nil(t, gs.Get("missing"))
	assert.Equal(t, map[string]BreakerState{"inference": BreakerClosed, "search": BreakerClosed}, gs.States())
}
