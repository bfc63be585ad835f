package models

import (
	"time"

	id "freshkeep/pkg/domain"
)

// TrackedItem is the engine's read-only view of a perishable inventory item.
// Item lifecycle (create/update/delete) is owned by the inventory service;
// the engine only reads snapshots per evaluation pass.
type TrackedItem struct {
	ID       id.ItemID
	UserID   id.UserID
	Name     string
	Category string
	Quantity float64
	Unit     string
	Amount   float64

	// ExpiryDate is a calendar date; nil means the item is never evaluated.
	ExpiryDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
