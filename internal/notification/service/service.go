package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	invModels "freshkeep/internal/inventory/models"
	"freshkeep/internal/notification/compose"
	"freshkeep/internal/notification/delivery"
	"freshkeep/internal/notification/lifecycle"
	"freshkeep/internal/notification/metrics"
	"freshkeep/internal/notification/models"
	prefModels "freshkeep/internal/preference/models"
	id "freshkeep/pkg/domain"
	dErrors "freshkeep/pkg/domain-errors"
	"freshkeep/pkg/platform/sentinel"
)

// ItemStore is the engine's read-only view of the inventory service.
type ItemStore interface {
	ListOwners(ctx context.Context) ([]id.UserID, error)
	ListActiveByUser(ctx context.Context, userID id.UserID) ([]*invModels.TrackedItem, error)
	FindByID(ctx context.Context, itemID id.ItemID) (*invModels.TrackedItem, error)
}

// PreferenceResolver supplies the user's notification policy.
type PreferenceResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (*prefModels.NotificationPreference, error)
}

// Ledger is the durable dedup ledger plus its read side for the history API.
type Ledger interface {
	Reserve(ctx context.Context, record *models.NotificationRecord) error
	HasNotified(ctx context.Context, userID id.UserID, itemID id.ItemID, kind models.TransitionKind) (bool, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID) error
	UnreadCount(ctx context.Context, userID id.UserID) (int, error)
	AppendDelivery(ctx context.Context, entry *models.DeliveryLogEntry) error
	ListDeliveries(ctx context.Context, notificationID id.NotificationID) ([]*models.DeliveryLogEntry, error)
}

// Dispatcher sends a composed payload through every configured channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipient string, msg compose.Message) []delivery.Outcome
}

// UserDirectory resolves a user's email address.
type UserDirectory interface {
	EmailAddress(ctx context.Context, userID id.UserID) (string, error)
}

// Service is the expiry notification engine. It classifies items, decides
// under at-most-once-per-transition semantics whether to notify, reserves a
// durable record before attempting delivery, and logs every channel attempt.
type Service struct {
	items      ItemStore
	prefs      PreferenceResolver
	ledger     Ledger
	dispatcher Dispatcher
	directory  UserDirectory
	composer   *compose.Composer

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	// emailOnAdded switches item-added confirmations from in-app-only to
	// emailed as well.
	emailOnAdded bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock fixes "now" for tests. The classifier always receives time
// through this function, never ambiently.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEmailOnAdded(enabled bool) Option {
	return func(s *Service) { s.emailOnAdded = enabled }
}

func New(items ItemStore, prefs PreferenceResolver, ledger Ledger, dispatcher Dispatcher, directory UserDirectory, opts ...Option) *Service {
	s := &Service{
		items:      items,
		prefs:      prefs,
		ledger:     ledger,
		dispatcher: dispatcher,
		directory:  directory,
		composer:   compose.New(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("freshkeep/notification"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluateAll runs one full evaluation pass over every user with active
// items. A failure in one user's pass is logged and isolated; the sweep is
// best effort, fully attempted.
func (s *Service) EvaluateAll(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "notification.sweep")
	defer span.End()

	now := s.now()

	owners, err := s.items.ListOwners(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list item owners")
	}
	span.SetAttributes(attribute.Int("owners", len(owners)))

	for _, userID := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.evaluateUser(ctx, userID, now); err != nil {
			s.metrics.IncrementEvaluationErrors()
			s.logger.ErrorContext(ctx, "user evaluation failed",
				"user_id", userID.String(),
				"error", err.Error(),
			)
		}
	}

	s.metrics.IncrementSweeps()
	return nil
}

// ItemCreated handles the on-demand tick after an item is created: it
// records the item-added confirmation and immediately runs both expiry
// passes against the single item, so an already-qualifying item does not
// wait for the next periodic sweep.
func (s *Service) ItemCreated(ctx context.Context, itemID id.ItemID) error {
	ctx, span := s.tracer.Start(ctx, "notification.item_created")
	defer span.End()

	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Deleted before we got to it; the deletion event covers it.
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load created item")
	}

	pref, skip, err := s.policyFor(ctx, item.UserID)
	if err != nil || skip {
		return err
	}
	recipient := s.recipientFor(ctx, item.UserID)

	if err := s.emit(ctx, item, models.KindItemAdded, nil, recipient, s.emailOnAdded); err != nil {
		return err
	}
	return s.evaluateItem(ctx, item, pref, recipient, s.now())
}

// EvaluateItem runs both expiry passes against a single item.
func (s *Service) EvaluateItem(ctx context.Context, itemID id.ItemID) error {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load item")
	}

	pref, skip, err := s.policyFor(ctx, item.UserID)
	if err != nil || skip {
		return err
	}
	return s.evaluateItem(ctx, item, pref, s.recipientFor(ctx, item.UserID), s.now())
}

// ItemRemoved records the removal notification from the deleted item's
// snapshot; the item itself is no longer queryable.
func (s *Service) ItemRemoved(ctx context.Context, item *invModels.TrackedItem) error {
	_, skip, err := s.policyFor(ctx, item.UserID)
	if err != nil || skip {
		return err
	}
	// Removal confirmations are in-app only; no address lookup.
	return s.emit(ctx, item, models.KindItemRemoved, nil, "", false)
}

// policyFor loads the user's preference. skip=true means the user disabled
// notifications: no record, no log, by policy.
func (s *Service) policyFor(ctx context.Context, userID id.UserID) (*prefModels.NotificationPreference, bool, error) {
	pref, err := s.prefs.Resolve(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !pref.EmailEnabled {
		s.metrics.IncrementUsersSkipped()
		return pref, true, nil
	}
	return pref, false, nil
}

// recipientFor resolves the delivery address. A missing address is a
// delivery problem, not a decision problem: the record is still reserved and
// the attempt logged as failed, so this only warns.
func (s *Service) recipientFor(ctx context.Context, userID id.UserID) string {
	recipient, err := s.directory.EmailAddress(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "no email address for user",
			"user_id", userID.String(),
			"error", err.Error(),
		)
		return ""
	}
	return recipient
}

func (s *Service) evaluateUser(ctx context.Context, userID id.UserID, now time.Time) error {
	pref, skip, err := s.policyFor(ctx, userID)
	if err != nil || skip {
		return err
	}
	recipient := s.recipientFor(ctx, userID)

	items, err := s.items.ListActiveByUser(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list active items")
	}

	// Expired pass first: an item that crossed from upcoming to expired
	// between ticks gets its final classification, not the stale one.
	for _, item := range items {
		c := lifecycle.Classify(item.ExpiryDate, now, pref.LeadDays)
		if c.State != lifecycle.StateExpired {
			continue
		}
		if err := s.emit(ctx, item, models.KindExpired, nil, recipient, true); err != nil {
			return err
		}
	}

	for _, item := range items {
		c := lifecycle.Classify(item.ExpiryDate, now, pref.LeadDays)
		if c.State != lifecycle.StateUpcoming {
			continue
		}
		days := c.DaysUntilExpiry
		if err := s.emit(ctx, item, models.KindUpcomingExpiry, &days, recipient, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) evaluateItem(ctx context.Context, item *invModels.TrackedItem, pref *prefModels.NotificationPreference, recipient string, now time.Time) error {
	c := lifecycle.Classify(item.ExpiryDate, now, pref.LeadDays)
	switch c.State {
	case lifecycle.StateExpired:
		return s.emit(ctx, item, models.KindExpired, nil, recipient, true)
	case lifecycle.StateUpcoming:
		days := c.DaysUntilExpiry
		return s.emit(ctx, item, models.KindUpcomingExpiry, &days, recipient, true)
	}
	return nil
}

// emit is the reserve-then-deliver sequence. The reservation is the
// decision of record: a duplicate is a silent no-op, and a delivery failure
// afterwards never rolls it back.
func (s *Service) emit(ctx context.Context, item *invModels.TrackedItem, kind models.TransitionKind, daysUntil *int, recipient string, deliver bool) error {
	// Cheap pre-check; the reservation below is still the atomic decision
	// when overlapping ticks race past this.
	notified, err := s.ledger.HasNotified(ctx, item.UserID, item.ID, kind)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check notification ledger")
	}
	if notified {
		return nil
	}

	snap := models.SnapshotOf(item, daysUntil)
	msg := s.composer.Compose(kind, snap, recipient)

	itemID := item.ID
	record := &models.NotificationRecord{
		ID:        id.NewNotificationID(),
		UserID:    item.UserID,
		ItemID:    &itemID,
		Kind:      kind,
		Title:     msg.Title,
		Message:   msg.Body,
		Snapshot:  snap,
		CreatedAt: s.now(),
	}
	if err := record.Validate(); err != nil {
		return err
	}

	if err := s.ledger.Reserve(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Already notified for this transition; expected under
			// overlapping ticks.
			s.metrics.IncrementDuplicateSkipped()
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve notification")
	}

	s.metrics.IncrementCreated(string(kind))
	s.logger.InfoContext(ctx, "notification recorded",
		"user_id", record.UserID.String(),
		"item_id", itemID.String(),
		"kind", string(kind),
	)

	if !deliver {
		return nil
	}

	outcomes := s.dispatcher.Dispatch(ctx, recipient, msg)
	for _, outcome := range outcomes {
		entry := &models.DeliveryLogEntry{
			ID:             uuid.New(),
			NotificationID: record.ID,
			Channel:        outcome.Channel,
			Status:         outcome.Status,
			Detail:         outcome.Detail,
			CreatedAt:      s.now(),
		}
		if err := s.ledger.AppendDelivery(ctx, entry); err != nil {
			s.logger.ErrorContext(ctx, "failed to record delivery outcome",
				"notification_id", record.ID.String(),
				"channel", outcome.Channel,
				"error", err.Error(),
			)
		}
		s.metrics.IncrementDelivery(outcome.Channel, string(outcome.Status))
		if outcome.Status == models.DeliveryFailed {
			s.logger.WarnContext(ctx, "delivery failed",
				"notification_id", record.ID.String(),
				"channel", outcome.Channel,
				"detail", outcome.Detail,
			)
		}
	}
	return nil
}

// ListNotifications returns the user's notification history, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error) {
	records, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return records, nil
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, notificationID id.NotificationID) error {
	if err := s.ledger.MarkRead(ctx, notificationID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return nil
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	count, err := s.ledger.UnreadCount(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	return count, nil
}

// ListDeliveries returns the delivery attempts for one notification.
func (s *Service) ListDeliveries(ctx context.Context, notificationID id.NotificationID) ([]*models.DeliveryLogEntry, error) {
	entries, err := s.ledger.ListDeliveries(ctx, notificationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return entries, nil
}
