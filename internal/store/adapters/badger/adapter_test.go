package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/store"
)

func openMemory(t *testing.T) store.AdapterConnection {
	t.Helper()
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "badger"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBadger_IsNodeLocal(t *testing.T) {
	conn := openMemory(t)
	require.False(t, conn.Shared())
	require.NoError(t, conn.Ping(context.Background()))
}

func TestBadger_UserUpsertKeepsName(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	users := openMemory(t).Users()

	_, err := users.Get(ctx, "u1")
	req.True(repository.IsNotFound(err))

	req.NoError(users.Upsert(ctx, types.UserBalance{ID: "u1", Name: "alice", Balance: 100}))
	req.NoError(users.Upsert(ctx, types.UserBalance{ID: "u1", Balance: 150}))

	u, err := users.Get(ctx, "u1")
	req.NoError(err)
	req.Equal("alice", u.Name)
	req.Equal(150.0, u.Balance)

	req.ErrorIs(users.Upsert(ctx, types.UserBalance{ID: "u1", Balance: types.UnknownBalance}), repository.ErrInvalidInput)
}

func TestBadger_MultiplierLifecycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := openMemory(t).Multipliers()

	lobby := types.Multiplier{ID: types.NoID, Scope: types.ScopePerNode, NodeID: "lobby", Amount: 2, DurationMinutes: 10, State: types.StateQueued}
	global := types.Multiplier{ID: types.NoID, Scope: types.ScopeGlobal, NodeID: "proxy", Amount: 3, DurationMinutes: 5, State: types.StateEnabled,
		Extra: map[string]string{types.ExtraOrigin: "proxy"}}
	other := types.Multiplier{ID: types.NoID, Scope: types.ScopePerNode, NodeID: "survival", Amount: 2, DurationMinutes: 1, State: types.StateQueued}

	for _, m := range []*types.Multiplier{&lobby, &global, &other} {
		req.NoError(repo.Save(ctx, m))
		req.True(m.Persisted())
	}
	req.NotEqual(lobby.ID, global.ID)

	got, err := repo.ListByNode(ctx, "lobby")
	req.NoError(err)
	req.Len(got, 2)

	lobby.State = types.StateEnabled
	lobby.EndTime = 1234
	req.NoError(repo.Save(ctx, &lobby))

	// otro origen con el mismo ID no borra la fila
	req.NoError(repo.Delete(ctx, global.ID, "lobby"))
	got, err = repo.ListByNode(ctx, "lobby")
	req.NoError(err)
	req.Len(got, 2)

	req.NoError(repo.Delete(ctx, global.ID, "proxy"))
	req.NoError(repo.Delete(ctx, global.ID, "proxy"))
	got, err = repo.ListByNode(ctx, "lobby")
	req.NoError(err)
	req.Len(got, 1)
	req.Equal(types.StateEnabled, got[0].State)
	req.Equal(int64(1234), got[0].EndTime)

	ghost := types.Multiplier{ID: 9999, Scope: types.ScopePerNode, NodeID: "lobby", Amount: 2, DurationMinutes: 1}
	req.ErrorIs(repo.Save(ctx, &ghost), repository.ErrNotFound)
}
