package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"freshkeep/internal/inventory/models"
	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// PostgresStore reads tracked items from the inventory tables. The engine
// never writes here; item lifecycle belongs to the inventory service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const itemColumns = `id, user_id, name, category, quantity, unit, amount, expiry_date, created_at, updated_at`

// ListOwners returns users owning at least one active item.
func (s *PostgresStore) ListOwners(ctx context.Context) ([]id.UserID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM items WHERE deleted_at IS NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("query item owners: %w", err)
	}
	defer rows.Close()

	var owners []id.UserID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan item owner: %w", err)
		}
		owners = append(owners, id.UserID(userID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item owners: %w", err)
	}
	return owners, nil
}

// ListActiveByUser returns the user's non-deleted items.
func (s *PostgresStore) ListActiveByUser(ctx context.Context, userID id.UserID) ([]*models.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("query active items: %w", err)
	}
	defer rows.Close()

	var items []*models.TrackedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active items: %w", err)
	}
	return items, nil
}

// FindByID returns one active item, sentinel.ErrNotFound when absent or
// deleted.
func (s *PostgresStore) FindByID(ctx context.Context, itemID id.ItemID) (*models.TrackedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 AND deleted_at IS NULL`,
		uuid.UUID(itemID),
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.TrackedItem, error) {
	var (
		item   models.TrackedItem
		itemID uuid.UUID
		userID uuid.UUID
		expiry sql.NullTime
	)
	err := row.Scan(&itemID, &userID, &item.Name, &item.Category, &item.Quantity, &item.Unit, &item.Amount, &expiry, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	item.ID = id.ItemID(itemID)
	item.UserID = id.UserID(userID)
	if expiry.Valid {
		v := expiry.Time
		item.ExpiryDate = &v
	}
	return &item, nil
}
