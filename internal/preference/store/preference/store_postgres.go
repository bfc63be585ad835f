package preference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"freshkeep/internal/preference/models"
	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// PostgresStore persists notification preferences, one row per user.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the stored preference, sentinel.ErrNotFound when absent.
func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*models.NotificationPreference, error) {
	var (
		pref models.NotificationPreference
		uid  uuid.UUID
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email_enabled, lead_days, phone_enabled, created_at, updated_at
		 FROM notification_preferences WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&uid, &pref.EmailEnabled, &pref.LeadDays, &pref.PhoneEnabled, &pref.CreatedAt, &pref.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query preference: %w", err)
	}
	pref.UserID = id.UserID(uid)
	return &pref, nil
}

// Upsert writes the preference. Last write wins; preferences are mutated
// only by their owner so no finer coordination is needed.
func (s *PostgresStore) Upsert(ctx context.Context, pref *models.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (user_id, email_enabled, lead_days, phone_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			lead_days     = EXCLUDED.lead_days,
			phone_enabled = EXCLUDED.phone_enabled,
			updated_at    = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(pref.UserID),
		pref.EmailEnabled,
		pref.LeadDays,
		pref.PhoneEnabled,
		pref.CreatedAt,
		pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}
