package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"freshkeep/internal/notification/models"
	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore is the durable ledger. The notifications table carries a
// unique index on (user_id, item_id, kind); a duplicate reservation comes
// back as SQLSTATE 23505 and is surfaced as sentinel.ErrConflict, which the
// engine treats as a normal skip.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Reserve inserts the notification record. The unique index makes this the
// single point of mutual exclusion between overlapping evaluation passes.
// Every write here is a single autonomous statement on purpose: a
// reservation must survive whatever fails after it, so no caller may carry
// a transaction across it.
func (s *PostgresStore) Reserve(ctx context.Context, record *models.NotificationRecord) error {
	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal item snapshot: %w", err)
	}

	var itemID *uuid.UUID
	if record.ItemID != nil {
		v := uuid.UUID(*record.ItemID)
		itemID = &v
	}

	query := `
		INSERT INTO notifications (id, user_id, item_id, kind, title, message, item_snapshot, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.UserID),
		itemID,
		string(record.Kind),
		record.Title,
		record.Message,
		snapshot,
		record.CreatedAt,
		record.Read,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// HasNotified reports whether a record already exists for the transition.
func (s *PostgresStore) HasNotified(ctx context.Context, userID id.UserID, itemID id.ItemID, kind models.TransitionKind) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND item_id = $2 AND kind = $3
		)
	`
	var exists bool
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID), uuid.UUID(itemID), string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query notification existence: %w", err)
	}
	return exists, nil
}

// ListByUser returns the user's notifications, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.NotificationRecord, error) {
	query := `
		SELECT id, user_id, item_id, kind, title, message, item_snapshot, created_at, read
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// MarkRead flags a notification as read.
func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`,
		uuid.UUID(notificationID),
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// UnreadCount counts the user's unread notifications.
func (s *PostgresStore) UnreadCount(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		uuid.UUID(userID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// AppendDelivery records one channel attempt, success or failure alike.
func (s *PostgresStore) AppendDelivery(ctx context.Context, entry *models.DeliveryLogEntry) error {
	query := `
		INSERT INTO delivery_logs (id, notification_id, channel, status, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.NotificationID),
		entry.Channel,
		string(entry.Status),
		entry.Detail,
		entry.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

// ListDeliveries returns delivery attempts for a notification, oldest first.
func (s *PostgresStore) ListDeliveries(ctx context.Context, notificationID id.NotificationID) ([]*models.DeliveryLogEntry, error) {
	query := `
		SELECT id, notification_id, channel, status, detail, created_at
		FROM delivery_logs
		WHERE notification_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(notificationID))
	if err != nil {
		return nil, fmt.Errorf("query delivery logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.DeliveryLogEntry
	for rows.Next() {
		var (
			entry          models.DeliveryLogEntry
			notificationID uuid.UUID
			status         string
		)
		if err := rows.Scan(&entry.ID, &notificationID, &entry.Channel, &status, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery log: %w", err)
		}
		entry.NotificationID = id.NotificationID(notificationID)
		entry.Status = models.DeliveryStatus(status)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery logs: %w", err)
	}
	return entries, nil
}

func scanRecords(rows *sql.Rows) ([]*models.NotificationRecord, error) {
	var records []*models.NotificationRecord
	for rows.Next() {
		var (
			record   models.NotificationRecord
			recordID uuid.UUID
			userID   uuid.UUID
			itemID   *uuid.UUID
			kind     string
			snapshot []byte
		)
		err := rows.Scan(&recordID, &userID, &itemID, &kind, &record.Title, &record.Message, &snapshot, &record.CreatedAt, &record.Read)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		record.ID = id.NotificationID(recordID)
		record.UserID = id.UserID(userID)
		if itemID != nil {
			v := id.ItemID(*itemID)
			record.ItemID = &v
		}
		record.Kind = models.TransitionKind(kind)
		if err := json.Unmarshal(snapshot, &record.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshal item snapshot: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return records, nil
}
