package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	now := time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name      string
		expiry    *time.Time
		leadDays  int
		wantState State
		wantDays  int
	}{
		{
			name:      "no expiry date is never evaluated",
			expiry:    nil,
			leadDays:  3,
			wantState: StateNotEvaluated,
		},
		{
			name:      "expired yesterday",
			expiry:    datePtr(now.Add(-day)),
			leadDays:  3,
			wantState: StateExpired,
			wantDays:  -1,
		},
		{
			name:      "expires today is upcoming, not expired",
			expiry:    datePtr(now),
			leadDays:  3,
			wantState: StateUpcoming,
			wantDays:  0,
		},
		{
			name:      "expires today with zero lead time still fires",
			expiry:    datePtr(now),
			leadDays:  0,
			wantState: StateUpcoming,
			wantDays:  0,
		},
		{
			name:      "expires exactly at lead boundary",
			expiry:    datePtr(now.Add(3 * day)),
			leadDays:  3,
			wantState: StateUpcoming,
			wantDays:  3,
		},
		{
			name:      "expires one day past lead boundary",
			expiry:    datePtr(now.Add(4 * day)),
			leadDays:  3,
			wantState: StateNotDue,
			wantDays:  4,
		},
		{
			name:      "tomorrow with one day lead",
			expiry:    datePtr(now.Add(day)),
			leadDays:  1,
			wantState: StateUpcoming,
			wantDays:  1,
		},
		{
			name:      "long expired",
			expiry:    datePtr(now.Add(-30 * day)),
			leadDays:  3,
			wantState: StateExpired,
			wantDays:  -30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.expiry, now, tt.leadDays)
			assert.Equal(t, tt.wantState, got.State)
			if tt.wantState != StateNotEvaluated {
				assert.Equal(t, tt.wantDays, got.DaysUntilExpiry)
			}
		})
	}
}

// Time of day must not influence classification: an item expiring at 00:01
// today is still "today" when evaluated at 23:59.
func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC)
	expiry := time.Date(2026, time.March, 10, 0, 1, 0, 0, time.UTC)

	got := Classify(&expiry, now, 3)
	assert.Equal(t, StateUpcoming, got.State)
	assert.Equal(t, 0, got.DaysUntilExpiry)
}

func TestDaysUntilExpiryCrossesMonths(t *testing.T) {
	now := time.Date(2026, time.January, 30, 8, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, time.February, 2, 22, 0, 0, 0, time.UTC)

	assert.Equal(t, 3, DaysUntilExpiry(expiry, now))
	assert.Equal(t, -3, DaysUntilExpiry(now, expiry))
}
