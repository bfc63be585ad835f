// Package events consumes inventory lifecycle events and turns them into
// on-demand evaluation ticks. Every event is also covered eventually by the
// periodic sweep; the consumer just shortens the latency.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	invModels "freshkeep/internal/inventory/models"
	"freshkeep/internal/platform/kafka/consumer"
	id "freshkeep/pkg/domain"
)

// Engine is the slice of the notification engine the consumer drives.
type Engine interface {
	ItemCreated(ctx context.Context, itemID id.ItemID) error
	ItemRemoved(ctx context.Context, item *invModels.TrackedItem) error
}

// Router dispatches consumed messages to the handler registered for their
// topic. Unknown topics are logged and dropped.
type Router struct {
	handlers map[string]consumer.Handler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{handlers: make(map[string]consumer.Handler), logger: logger}
}

func (r *Router) Register(topic string, handler consumer.Handler) {
	r.handlers[topic] = handler
}

// Topics returns the registered topic names.
func (r *Router) Topics() []string {
	out := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		out = append(out, topic)
	}
	return out
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	handler, ok := r.handlers[msg.Topic]
	if !ok {
		r.logger.WarnContext(ctx, "no handler for topic", "topic", msg.Topic)
		return nil
	}
	return handler.Handle(ctx, msg)
}

type itemCreatedEvent struct {
	ItemID string `json:"item_id"`
	UserID string `json:"user_id"`
}

// ItemCreatedHandler triggers the on-demand tick for a freshly created item.
type ItemCreatedHandler struct {
	engine Engine
}

func NewItemCreatedHandler(engine Engine) *ItemCreatedHandler {
	return &ItemCreatedHandler{engine: engine}
}

func (h *ItemCreatedHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event itemCreatedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode item created event: %w", err)
	}
	itemID, err := id.ParseItemID(event.ItemID)
	if err != nil {
		return fmt.Errorf("item created event has invalid item id %q: %w", event.ItemID, err)
	}
	return h.engine.ItemCreated(ctx, itemID)
}

// itemDeletedEvent carries the full item state at deletion time; the row is
// already soft-deleted when the event arrives.
type itemDeletedEvent struct {
	ItemID     string     `json:"item_id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Quantity   float64    `json:"quantity"`
	Unit       string     `json:"unit"`
	Amount     float64    `json:"amount"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// ItemDeletedHandler records the removal notification from the event payload.
type ItemDeletedHandler struct {
	engine Engine
}

func NewItemDeletedHandler(engine Engine) *ItemDeletedHandler {
	return &ItemDeletedHandler{engine: engine}
}

func (h *ItemDeletedHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event itemDeletedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode item deleted event: %w", err)
	}
	itemID, err := id.ParseItemID(event.ItemID)
	if err != nil {
		return fmt.Errorf("item deleted event has invalid item id %q: %w", event.ItemID, err)
	}
	userID, err := id.ParseUserID(event.UserID)
	if err != nil {
		return fmt.Errorf("item deleted event has invalid user id %q: %w", event.UserID, err)
	}

	return h.engine.ItemRemoved(ctx, &invModels.TrackedItem{
		ID:         itemID,
		UserID:     userID,
		Name:       event.Name,
		Category:   event.Category,
		Quantity:   event.Quantity,
		Unit:       event.Unit,
		Amount:     event.Amount,
		ExpiryDate: event.ExpiryDate,
	})
}
