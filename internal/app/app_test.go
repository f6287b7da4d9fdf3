package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/coinsync/internal/bus"
	"github.com/dropDatabas3/coinsync/internal/cache"
	"github.com/dropDatabas3/coinsync/internal/config"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/multiplier"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

func loadNode(t *testing.T, name string) *config.Config {
	t.Helper()
	t.Setenv("NODE_NAME", name)
	t.Setenv("BUS_KIND", "memory")
	t.Setenv("STORAGE_DRIVER", "noop")
	t.Setenv("MULTIPLIERS_TICK", "20ms")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func startNode(t *testing.T, ctx context.Context, cfg *config.Config) *Container {
	t.Helper()
	c, err := New(ctx, cfg)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("node did not stop")
		}
		_ = c.Close()
	})
	return c
}

func TestTwoNodes_ReplicateOverMemoryBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	base := bus.DefaultHub.Size()

	lobbyCfg := loadNode(t, "lobby")
	lobbyCfg.Executors = []config.Executor{{ID: "vip", Name: "VIP", Cost: 100, Commands: []string{"give {player} diamond"}}}
	lobby := startNode(t, ctx, lobbyCfg)
	require.Eventually(t, func() bool { return bus.DefaultHub.Size() == base+1 }, time.Second, 5*time.Millisecond)

	survival := startNode(t, ctx, loadNode(t, "survival"))
	require.Eventually(t, func() bool { return bus.DefaultHub.Size() == base+2 }, time.Second, 5*time.Millisecond)

	// survival pidió executors al arrancar y lobby respondió
	require.Eventually(t, func() bool {
		_, ok := survival.Executor.Get("vip")
		return ok
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, lobby.Service.SetBalance(ctx, "u1", 150))
	require.Eventually(t, func() bool {
		return survival.Node.Cache.Balance("u1") == 150
	}, time.Second, 5*time.Millisecond)

	m, err := lobby.Manager.Create(ctx, multiplier.Request{
		Scope: types.ScopeGlobal, Amount: 2, DurationMinutes: 5, EnableNow: true,
	})
	require.NoError(t, err)
	require.Equal(t, types.StateEnabled, m.State)

	// GLOBAL: survival lo aplica a su propio slot
	require.Eventually(t, func() bool {
		got, ok := survival.Node.Cache.Multiplier("survival")
		return ok && got.SameAs(m)
	}, time.Second, 5*time.Millisecond)

	next, err := survival.Service.AddBalance(ctx, "u1", 10, true)
	require.NoError(t, err)
	require.Equal(t, 170.0, next)
	require.Eventually(t, func() bool {
		return lobby.Node.Cache.Balance("u1") == 170
	}, time.Second, 5*time.Millisecond)
}

func TestRun_StopsReplicationBeforeReset(t *testing.T) {
	base := bus.DefaultHub.Size()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := loadNode(t, "arena")
	c, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return bus.DefaultHub.Size() == base+1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Service.SetBalance(ctx, "u1", 40))
	require.Equal(t, 40.0, c.Node.Cache.Balance("u1"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("node did not stop")
	}
	require.Equal(t, base, bus.DefaultHub.Size())
	require.Empty(t, c.Node.Cache.Balances())

	// una entrega posterior al shutdown no vuelve a poblar el cache
	var (
		mu   sync.Mutex
		seen int
	)
	codec, err := wire.CodecByName(cfg.Bus.Codec)
	require.NoError(t, err)
	other := bus.NewMemory(bus.DefaultHub, codec)
	require.NoError(t, other.Start(context.Background(), func(context.Context, wire.Envelope) {
		mu.Lock()
		seen++
		mu.Unlock()
	}))
	t.Cleanup(func() { _ = other.Stop() })
	require.NoError(t, other.Publish(context.Background(), wire.New(wire.UserUpdate{UserID: "u2", Balance: 9})))

	mu.Lock()
	require.Equal(t, 1, seen)
	mu.Unlock()
	require.Equal(t, cache.Unknown, c.Node.Cache.Balance("u2"))
	require.Empty(t, c.Node.Cache.Balances())
}
