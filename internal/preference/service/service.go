package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"freshkeep/internal/preference/models"
	id "freshkeep/pkg/domain"
	dErrors "freshkeep/pkg/domain-errors"
	"freshkeep/pkg/platform/sentinel"
)

// Store persists per-user notification preferences.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (*models.NotificationPreference, error)
	Upsert(ctx context.Context, pref *models.NotificationPreference) error
}

// Service resolves preferences with lazy defaults: a user who never saved
// anything gets the default policy without a row being written.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the user's preference, falling back to defaults when none
// is persisted.
func (s *Service) Resolve(ctx context.Context, userID id.UserID) (*models.NotificationPreference, error) {
	pref, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Default(userID), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load preferences")
	}
	return pref, nil
}

// UpdateParams carries the user-editable preference fields.
type UpdateParams struct {
	EmailEnabled bool
	LeadDays     int
	PhoneEnabled bool
}

// Update validates and persists the user's preference.
func (s *Service) Update(ctx context.Context, userID id.UserID, params UpdateParams) (*models.NotificationPreference, error) {
	existing, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pref := &models.NotificationPreference{
		UserID:       userID,
		EmailEnabled: params.EmailEnabled,
		LeadDays:     params.LeadDays,
		PhoneEnabled: params.PhoneEnabled,
		CreatedAt:    existing.CreatedAt,
		UpdatedAt:    now,
	}
	if err := pref.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, pref); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save preferences")
	}

	s.logger.InfoContext(ctx, "preferences updated",
		"user_id", userID.String(),
		"email_enabled", pref.EmailEnabled,
		"lead_days", pref.LeadDays,
	)
	return pref, nil
}
