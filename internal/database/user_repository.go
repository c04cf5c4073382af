package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankengine/internal/ledger"
)

// UserRepository implements bank.UserDirectory: resolving the
// username a customer supplies when addressing an internal transfer
// to the UserID the ledger books against.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository instance.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.pool}
}

// ResolveUsername implements bank.UserDirectory.
func (r *UserRepository) ResolveUsername(ctx context.Context, username string) (ledger.UserID, bool, error) {
	var uid uint64
	err := r.db.QueryRow(ctx, `SELECT uid FROM users WHERE username = $1`, username).Scan(&uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to resolve username %q: %w", username, err)
	}
	return ledger.UserID(uid), true, nil
}
