package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "freshkeep/pkg/domain"
	"freshkeep/pkg/platform/sentinel"
)

// PostgresStore resolves recipient addresses from the inventory service's
// users table. Read-only; accounts are managed elsewhere.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EmailAddress returns the user's address, sentinel.ErrNotFound if the user
// is unknown.
func (s *PostgresStore) EmailAddress(ctx context.Context, userID id.UserID) (string, error) {
	var addr string
	err := s.db.QueryRowContext(ctx,
		`SELECT email FROM users WHERE id = $1`,
		uuid.UUID(userID),
	).Scan(&addr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("query user email: %w", err)
	}
	return addr, nil
}
