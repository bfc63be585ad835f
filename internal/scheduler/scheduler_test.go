package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEngine struct {
	sweeps atomic.Int64
}

func (e *countingEngine) EvaluateAll(context.Context) error {
	e.sweeps.Add(1)
	return nil
}

type deniedLock struct{}

func (deniedLock) TryAcquire(context.Context, time.Duration) (bool, error) { return false, nil }
func (deniedLock) Release(context.Context) error                          { return nil }

func TestRunSweepsImmediatelyAndOnTicks(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// One immediate sweep plus at least one tick.
	assert.GreaterOrEqual(t, engine.sweeps.Load(), int64(2))
}

func TestHeldLockSkipsTick(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, 10*time.Millisecond, time.Minute, WithLock(deniedLock{}))

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	_ = s.Run(ctx)

	assert.Zero(t, engine.sweeps.Load())
}
