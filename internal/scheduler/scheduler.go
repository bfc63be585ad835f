// Package scheduler drives the periodic evaluation sweep. The tick lock only
// prevents redundant concurrent sweeps across replicas; correctness never
// depends on it, the notification ledger deduplicates regardless.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Engine is the sweep entry point.
type Engine interface {
	EvaluateAll(ctx context.Context) error
}

// Lock coordinates sweeps across replicas.
type Lock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Scheduler runs one sweep immediately on start, then one per interval.
type Scheduler struct {
	engine   Engine
	lock     Lock
	interval time.Duration
	lockTTL  time.Duration
	logger   *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithLock(lock Lock) Option {
	return func(s *Scheduler) { s.lock = lock }
}

func New(engine Engine, interval, lockTTL time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:   engine,
		lock:     NoopLock{},
		interval: interval,
		lockTTL:  lockTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	acquired, err := s.lock.TryAcquire(ctx, s.lockTTL)
	if err != nil {
		// A broken lock backend must not stop sweeps; the ledger absorbs
		// any duplicate work.
		s.logger.WarnContext(ctx, "sweep lock unavailable, sweeping anyway",
			"error", err.Error(),
		)
		acquired = true
	} else if !acquired {
		s.logger.DebugContext(ctx, "sweep lock held elsewhere, skipping tick")
		return
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to release sweep lock", "error", err.Error())
		}
	}()

	start := time.Now()
	if err := s.engine.EvaluateAll(ctx); err != nil {
		s.logger.ErrorContext(ctx, "evaluation sweep failed", "error", err.Error())
		return
	}
	s.logger.InfoContext(ctx, "evaluation sweep complete",
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// NoopLock always grants the tick; used for single-replica deployments
// without Redis.
type NoopLock struct{}

func (NoopLock) TryAcquire(context.Context, time.Duration) (bool, error) { return true, nil }
func (NoopLock) Release(context.Context) error                          { return nil }
