package models

import (
	"time"

	id "freshkeep/pkg/domain"
	dErrors "freshkeep/pkg/domain-errors"
)

// DefaultLeadDays is how many days before expiry an upcoming-expiry
// notification becomes due when the user has not chosen otherwise.
const DefaultLeadDays = 3

// NotificationPreference holds a user's notification policy. One row per
// user, created lazily with defaults on first read.
type NotificationPreference struct {
	UserID       id.UserID
	EmailEnabled bool
	LeadDays     int

	// PhoneEnabled is a reserved channel flag; no phone dispatcher is
	// registered yet.
	PhoneEnabled bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default returns the policy applied to users who never saved preferences.
func Default(userID id.UserID) *NotificationPreference {
	now := time.Now()
	return &NotificationPreference{
		UserID:       userID,
		EmailEnabled: true,
		LeadDays:     DefaultLeadDays,
		PhoneEnabled: false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate enforces preference invariants before persistence.
func (p *NotificationPreference) Validate() error {
	if p.UserID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "preference requires a user id")
	}
	if p.LeadDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "lead days must be zero or positive")
	}
	return nil
}
