package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"freshkeep/internal/notification/compose"
)

// Dispatcher fans one composed notification out to every registered
// channel. It always returns one Outcome per channel; nothing panics or
// errors past this boundary.
type Dispatcher struct {
	channels []Channel
	limiter  *RateLimiter
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithRateLimiter(limiter *RateLimiter) Option {
	return func(d *Dispatcher) { d.limiter = limiter }
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) { d.tracer = tp.Tracer("freshkeep/delivery") }
}

func New(channels []Channel, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channels: channels,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
		tracer:   otel.Tracer("freshkeep/delivery"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch attempts every channel and returns the per-channel outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient string, msg compose.Message) []Outcome {
	outcomes := make([]Outcome, 0, len(d.channels))
	for _, channel := range d.channels {
		outcomes = append(outcomes, d.attempt(ctx, channel, recipient, msg))
	}
	return outcomes
}

func (d *Dispatcher) attempt(ctx context.Context, channel Channel, recipient string, msg compose.Message) (outcome Outcome) {
	ctx, span := d.tracer.Start(ctx, "delivery.attempt",
		trace.WithAttributes(attribute.String("channel", channel.Name())),
	)
	defer span.End()
	defer func() {
		span.SetAttributes(attribute.String("status", string(outcome.Status)))
	}()

	// A panicking provider must not take the evaluation loop down with it.
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.ErrorContext(ctx, "delivery channel panic",
				"channel", channel.Name(),
				"panic", rec,
			)
			outcome = failed(channel.Name(), fmt.Sprintf("channel panic: %v", rec))
		}
	}()

	if d.limiter != nil && !d.limiter.Allow(recipient, d.now()) {
		return failed(channel.Name(), "rate_limited")
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return channel.Deliver(attemptCtx, recipient, msg)
}
