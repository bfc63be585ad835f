package domain

import (
	"github.com/google/uuid"

	dErrors "freshkeep/pkg/domain-errors"
)

// Typed IDs keep user, item and notification identifiers from being mixed up
// at compile time. All of them are UUIDs on the wire and in storage.
type (
	UserID         uuid.UUID
	ItemID         uuid.UUID
	NotificationID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ItemID) String() string         { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewNotificationID mints a random notification identifier.
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses a user ID received at an API boundary.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return UserID(uuid.Nil), err
	}
	return UserID(parsed), nil
}

// ParseItemID parses an item ID received at an API boundary.
func ParseItemID(raw string) (ItemID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ItemID(uuid.Nil), err
	}
	return ItemID(parsed), nil
}

// ParseNotificationID parses a notification ID received at an API boundary.
func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return NotificationID(uuid.Nil), err
	}
	return NotificationID(parsed), nil
}
