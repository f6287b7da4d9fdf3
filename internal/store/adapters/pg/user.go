package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// userRepo implementa repository.UserRepository.
type userRepo struct{ pool *pgxpool.Pool }

func (r *userRepo) Get(ctx context.Context, userID string) (*types.UserBalance, error) {
	const query = `SELECT uuid, name, balance, last_seen FROM users WHERE uuid = $1`
	var (
		u        types.UserBalance
		lastSeen int64
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Balance, &lastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.LastSeen = time.UnixMilli(lastSeen)
	return &u, nil
}

func (r *userRepo) Upsert(ctx context.Context, u types.UserBalance) error {
	const query = `
		INSERT INTO users (uuid, name, balance, last_seen)
		VALUES ($1, COALESCE($2, ''), $3, $4)
		ON CONFLICT (uuid) DO UPDATE SET
			balance = EXCLUDED.balance,
			last_seen = EXCLUDED.last_seen,
			name = COALESCE($2, users.name)
	`
	if u.ID == "" || !u.Known() {
		return repository.ErrInvalidInput
	}
	seen := u.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}
	if _, err := r.pool.Exec(ctx, query, u.ID, nullIfEmpty(u.Name), u.Balance, seen.UnixMilli()); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
