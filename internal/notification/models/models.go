package models

import (
	"time"

	"github.com/google/uuid"

	invModels "freshkeep/internal/inventory/models"
	id "freshkeep/pkg/domain"
	dErrors "freshkeep/pkg/domain-errors"
)

// TransitionKind is the lifecycle event a notification represents. Each kind
// is deduplicated independently per (user, item): an item may receive one
// upcoming-expiry notification and later exactly one expired notification.
type TransitionKind string

const (
	KindUpcomingExpiry TransitionKind = "upcoming_expiry"
	KindExpired        TransitionKind = "expired"
	KindItemAdded      TransitionKind = "item_added"
	KindItemRemoved    TransitionKind = "item_removed"
)

// Valid reports whether k is a known transition kind.
func (k TransitionKind) Valid() bool {
	switch k {
	case KindUpcomingExpiry, KindExpired, KindItemAdded, KindItemRemoved:
		return true
	}
	return false
}

// DeliveryStatus is the terminal outcome of one channel attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// ItemSnapshot freezes the item attributes at notification time so the
// audit trail stays truthful after the item is edited or deleted.
type ItemSnapshot struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Quantity float64    `json:"quantity"`
	Unit     string     `json:"unit"`
	Amount   float64    `json:"amount"`
	Expiry   *time.Time `json:"expiry,omitempty"`

	// DaysUntilExpiry is set for upcoming-expiry notifications only.
	DaysUntilExpiry *int `json:"days_until_expiry,omitempty"`
}

// SnapshotOf captures item into a snapshot. daysUntil may be nil for kinds
// other than upcoming-expiry.
func SnapshotOf(item *invModels.TrackedItem, daysUntil *int) ItemSnapshot {
	return ItemSnapshot{
		Name:            item.Name,
		Category:        item.Category,
		Quantity:        item.Quantity,
		Unit:            item.Unit,
		Amount:          item.Amount,
		Expiry:          item.ExpiryDate,
		DaysUntilExpiry: daysUntil,
	}
}

// NotificationRecord is the durable, append-only decision record. At most
// one record may ever exist per (user, item, kind); the ledger's reservation
// enforces that.
type NotificationRecord struct {
	ID        id.NotificationID
	UserID    id.UserID
	ItemID    *id.ItemID
	Kind      TransitionKind
	Title     string
	Message   string
	Snapshot  ItemSnapshot
	CreatedAt time.Time
	Read      bool
}

// Validate enforces record invariants before reservation.
func (r *NotificationRecord) Validate() error {
	if r.ID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "notification requires an id")
	}
	if r.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "notification requires a user id")
	}
	if !r.Kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown transition kind")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "notification requires a title")
	}
	return nil
}

// DeliveryLogEntry records one channel attempt for a notification. Several
// entries may exist per record (one per channel attempt); the record itself
// is never duplicated.
type DeliveryLogEntry struct {
	ID             uuid.UUID
	NotificationID id.NotificationID
	Channel        string
	Status         DeliveryStatus
	Detail         string
	CreatedAt      time.Time
}
