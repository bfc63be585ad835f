// Package delivery sends composed notifications through one or more
// channels. Channels never let provider errors escape: every attempt
// resolves to an Outcome so the evaluation loop's per-item logging cannot be
// skipped by a delivery-layer failure.
package delivery

import (
	"context"

	"freshkeep/internal/notification/compose"
	"freshkeep/internal/notification/models"
)

// Outcome is the terminal result of one channel attempt.
type Outcome struct {
	Channel string
	Status  models.DeliveryStatus
	// Detail carries the raw provider response or error for the audit log.
	Detail string
}

// Channel is a single delivery transport. Implementations convert every
// provider error, timeout included, into a failed Outcome.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, recipient string, msg compose.Message) Outcome
}

func failed(channel, detail string) Outcome {
	return Outcome{Channel: channel, Status: models.DeliveryFailed, Detail: detail}
}

func sent(channel, detail string) Outcome {
	return Outcome{Channel: channel, Status: models.DeliverySent, Detail: detail}
}
