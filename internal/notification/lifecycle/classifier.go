// Package lifecycle classifies items into expiry states. It is pure: "now"
// is always an explicit parameter, never read ambiently.
package lifecycle

import "time"

// State is the expiry lifecycle state of an item at a given instant.
type State int

const (
	// StateNotDue means the item has an expiry date outside the lead window.
	StateNotDue State = iota
	// StateNotEvaluated means the item carries no expiry date and is never
	// notified about.
	StateNotEvaluated
	// StateUpcoming means the item expires within the lead window, today
	// included.
	StateUpcoming
	// StateExpired means the item's expiry date is strictly before today.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNotDue:
		return "not_due"
	case StateNotEvaluated:
		return "not_evaluated"
	case StateUpcoming:
		return "upcoming"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Classification is the result of classifying one item.
type Classification struct {
	State State
	// DaysUntilExpiry is meaningful for StateUpcoming (0 means the item
	// expires today) and StateExpired (negative).
	DaysUntilExpiry int
}

// Classify maps (expiry date, now, lead days) to a lifecycle state.
//
// Both timestamps are truncated to calendar dates before comparison, so an
// item expiring "today" reports zero days left regardless of time of day.
// Day zero belongs to the upcoming window, never to expired: expired
// requires the calendar date to have passed.
func Classify(expiry *time.Time, now time.Time, leadDays int) Classification {
	if expiry == nil {
		return Classification{State: StateNotEvaluated}
	}

	days := DaysUntilExpiry(*expiry, now)
	switch {
	case days < 0:
		return Classification{State: StateExpired, DaysUntilExpiry: days}
	case days <= leadDays:
		return Classification{State: StateUpcoming, DaysUntilExpiry: days}
	default:
		return Classification{State: StateNotDue, DaysUntilExpiry: days}
	}
}

// DaysUntilExpiry counts whole calendar days from now's date to the expiry
// date. Negative once the expiry date is in the past.
func DaysUntilExpiry(expiry, now time.Time) int {
	return int(dateOf(expiry).Sub(dateOf(now)) / (24 * time.Hour))
}

// dateOf projects a timestamp onto its calendar date at UTC midnight. Using
// a fixed zone keeps the subtraction an exact multiple of 24h.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
