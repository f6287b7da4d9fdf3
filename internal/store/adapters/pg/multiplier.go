package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// multiplierRepo implementa repository.MultiplierRepository.
type multiplierRepo struct{ pool *pgxpool.Pool }

func (r *multiplierRepo) Save(ctx context.Context, m *types.Multiplier) error {
	queued := m.State == types.StateQueued
	enabled := m.State == types.StateEnabled

	if !m.Persisted() {
		const insert = `
			INSERT INTO multipliers (node, owner, owner_name, scope, amount, minutes, end_time, queued, enabled, extra)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
		err := r.pool.QueryRow(ctx, insert,
			m.NodeID, nullIfEmpty(m.EnablerID), m.EnablerName, string(m.Scope),
			m.Amount, m.DurationMinutes, m.EndTime, queued, enabled, m.Extra,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("insert multiplier: %w", err)
		}
		return nil
	}

	const update = `
		UPDATE multipliers SET
			node = $2, owner = $3, owner_name = $4, scope = $5, amount = $6,
			minutes = $7, end_time = $8, queued = $9, enabled = $10, extra = $11
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, update,
		m.ID, m.NodeID, nullIfEmpty(m.EnablerID), m.EnablerName, string(m.Scope),
		m.Amount, m.DurationMinutes, m.EndTime, queued, enabled, m.Extra,
	)
	if err != nil {
		return fmt.Errorf("update multiplier %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update multiplier %d: %w", m.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *multiplierRepo) Delete(ctx context.Context, id int64, origin string) error {
	const query = `
		DELETE FROM multipliers
		WHERE id = $1
		  AND COALESCE(NULLIF(extra->>'origin', ''), CASE WHEN scope = 'PER_NODE' THEN node ELSE '' END) = $2`
	if _, err := r.pool.Exec(ctx, query, id, origin); err != nil {
		return fmt.Errorf("delete multiplier %d: %w", id, err)
	}
	return nil
}

func (r *multiplierRepo) ListByNode(ctx context.Context, nodeID string) ([]types.Multiplier, error) {
	const query = `
		SELECT id, node, COALESCE(owner, ''), owner_name, scope, amount, minutes, end_time, queued, enabled, extra
		FROM multipliers
		WHERE (node = $1 OR scope = 'GLOBAL') AND (queued OR enabled)
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list multipliers: %w", err)
	}
	defer rows.Close()

	var out []types.Multiplier
	for rows.Next() {
		var (
			m               types.Multiplier
			scope           string
			queued, enabled bool
		)
		if err := rows.Scan(&m.ID, &m.NodeID, &m.EnablerID, &m.EnablerName, &scope,
			&m.Amount, &m.DurationMinutes, &m.EndTime, &queued, &enabled, &m.Extra); err != nil {
			return nil, fmt.Errorf("scan multiplier: %w", err)
		}
		m.Scope = types.Scope(scope)
		switch {
		case enabled:
			m.State = types.StateEnabled
		case queued:
			m.State = types.StateQueued
		default:
			m.State = types.StateDisabled
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
