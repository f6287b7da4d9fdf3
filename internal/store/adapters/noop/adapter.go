// Package noop implementa el adapter sin DB: el nodo corre solo con cache.
package noop

import (
	"context"
	"sync/atomic"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/store"
)

func init() {
	store.RegisterAdapter(&noopAdapter{})
}

type noopAdapter struct{}

// New retorna el adapter noop.
func New() store.Adapter {
	return &noopAdapter{}
}

func (a *noopAdapter) Name() string { return "noop" }

func (a *noopAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return &noopConnection{}, nil
}

// noopConnection descarta las escrituras y no encuentra nada en las lecturas.
// Save igual asigna IDs para que los multipliers sean direccionables.
type noopConnection struct {
	nextID atomic.Int64
}

func (c *noopConnection) Name() string                   { return "noop" }
func (c *noopConnection) Ping(ctx context.Context) error { return nil }
func (c *noopConnection) Close() error                   { return nil }
func (c *noopConnection) Shared() bool                   { return false }

func (c *noopConnection) Users() repository.UserRepository { return noopUserRepo{} }
func (c *noopConnection) Multipliers() repository.MultiplierRepository {
	return &noopMultiplierRepo{conn: c}
}

type noopUserRepo struct{}

func (noopUserRepo) Get(ctx context.Context, userID string) (*types.UserBalance, error) {
	return nil, repository.ErrNotFound
}
func (noopUserRepo) Upsert(ctx context.Context, u types.UserBalance) error { return nil }

type noopMultiplierRepo struct{ conn *noopConnection }

func (r *noopMultiplierRepo) Save(ctx context.Context, m *types.Multiplier) error {
	if !m.Persisted() {
		m.ID = r.conn.nextID.Add(1)
	}
	return nil
}
func (r *noopMultiplierRepo) Delete(ctx context.Context, id int64, origin string) error { return nil }
func (r *noopMultiplierRepo) ListByNode(ctx context.Context, nodeID string) ([]types.Multiplier, error) {
	return nil, nil
}
