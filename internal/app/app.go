// Package app arma un nodo completo a partir de la config: storage, cache,
// transporte, replicación, ciclo de vida de multipliers y HTTP de admin.
package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/coinsync/internal/app/nodectx"
	"github.com/dropDatabas3/coinsync/internal/bus"
	"github.com/dropDatabas3/coinsync/internal/cache"
	"github.com/dropDatabas3/coinsync/internal/config"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/executor"
	adminhttp "github.com/dropDatabas3/coinsync/internal/http"
	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/multiplier"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/replication"
	"github.com/dropDatabas3/coinsync/internal/store"
	"github.com/dropDatabas3/coinsync/internal/wire"

	// registra postgres, badger y noop
	_ "github.com/dropDatabas3/coinsync/internal/store/adapters/dal"
)

// Container es el nodo armado.
type Container struct {
	Node     *nodectx.Node
	Service  *replication.Service
	Manager  *multiplier.Manager
	Admin    nethttp.Handler // nil si admin.addr está vacío
	Executor *executor.Registry

	adminAddr string
	log       *zap.Logger
}

// OpenStore abre el storage configurado y, si flags.migrate, aplica el schema.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (store.AdapterConnection, error) {
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		Path:         cfg.Storage.Path,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	if migrate {
		m, ok := conn.(store.Migratable)
		if !ok {
			logger.L().Info("storage has no migrations", logger.String("driver", conn.Name()))
			return conn, nil
		}
		if err := m.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate %s: %w", conn.Name(), err)
		}
	}
	return conn, nil
}

// New arma el nodo sin arrancarlo. El logger global ya tiene que estar
// inicializado.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	log := logger.L().With(logger.NodeID(cfg.Node.Name))

	if err := metrics.Register(nil); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	conn, err := OpenStore(ctx, cfg, cfg.Flags.Migrate)
	if err != nil {
		return nil, err
	}
	node := nodectx.New(cfg.Node.Name, cache.New(), conn, log)

	codec, err := wire.CodecByName(cfg.Bus.Codec)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	b, err := bus.New(ctx, bus.Config{
		Kind:    cfg.Bus.Kind,
		Channel: cfg.Bus.Channel,
		Redis: bus.RedisConfig{
			Addr:     cfg.Bus.Redis.Addr,
			Password: cfg.Bus.Redis.Password,
			DB:       cfg.Bus.Redis.DB,
		},
		Relay: bus.RelayConfig{
			PubAddr: cfg.Bus.Relay.PubAddr,
			SubAddr: cfg.Bus.Relay.SubAddr,
		},
	}, codec)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	closeAll := func() {
		_ = b.Stop()
		_ = conn.Close()
	}

	execs := executor.NewRegistry(log)
	for _, e := range cfg.Executors {
		execs.Add(types.NewExecutorDef(e.ID, e.Name, e.Cost, e.Commands))
	}

	policy, err := replication.ParseRemoteDeletePolicy(cfg.Sync.RemoteDeletes)
	if err != nil {
		closeAll()
		return nil, err
	}
	ttl, err := cfg.InflightTTL()
	if err != nil {
		closeAll()
		return nil, err
	}
	svc, err := replication.New(node, b, execs, replication.Options{
		RemoteDeletes: policy,
		InflightMax:   cfg.Sync.InflightMax,
		InflightTTL:   ttl,
		OutboxSize:    cfg.Sync.OutboxSize,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	tick, err := cfg.Tick()
	if err != nil {
		closeAll()
		return nil, err
	}
	mgr := multiplier.New(node, svc, multiplier.Options{
		Tick:         tick,
		SnapshotPath: cfg.Multipliers.SnapshotPath,
	})

	c := &Container{
		Node:      node,
		Service:   svc,
		Manager:   mgr,
		Executor:  execs,
		adminAddr: cfg.Admin.Addr,
		log:       log,
	}
	if cfg.Admin.Addr != "" {
		metricsHandler, err := adminhttp.RegisterMetrics(nil, nil)
		if err != nil {
			closeAll()
			return nil, err
		}
		c.Admin = adminhttp.NewRouter(adminhttp.RouterDeps{
			Node:        nodeView{node: node, execs: execs},
			Balances:    svc,
			Multipliers: mgr,
			Ready:       func(r *nethttp.Request) error { return node.Store.Ping(r.Context()) },
			Metrics:     metricsHandler,
			Log:         log.Named("http"),
		})
	}
	return c, nil
}

// Run suscribe el nodo, restaura su estado, pide el de los demás y corre el
// ticker y el HTTP de admin hasta que ctx se cancela.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Service.Start(ctx); err != nil {
		return err
	}

	n, err := c.Manager.Restore(ctx)
	if err != nil {
		c.log.Warn("restore multipliers", logger.Err(err))
	}
	c.log.Info("multipliers restored", logger.Count(n))

	if err := c.Service.RequestMultipliers(ctx); err != nil {
		c.log.Warn("request multipliers", logger.Err(err))
	}
	if err := c.Service.RequestExecutors(ctx); err != nil {
		c.log.Warn("request executors", logger.Err(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Manager.Run(gctx) })
	if c.Admin != nil {
		g.Go(func() error { return adminhttp.Start(gctx, c.adminAddr, c.Admin, c.log) })
	}
	err = g.Wait()

	// el ticker ya paró; sin replicación ninguna entrega puede tocar el
	// cache después del Reset
	if serr := c.Service.Stop(); serr != nil {
		c.log.Warn("stop replication", logger.Err(serr))
	}
	c.Node.Cache.Reset()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close libera el storage.
func (c *Container) Close() error {
	if c.Node.Store == nil {
		return nil
	}
	return c.Node.Store.Close()
}

// nodeView adapta el nodo a la vista de la API de admin.
type nodeView struct {
	node  *nodectx.Node
	execs *executor.Registry
}

func (v nodeView) Name() string                    { return v.node.Name }
func (v nodeView) Balance(userID string) float64   { return v.node.Cache.Balance(userID) }
func (v nodeView) Balances() map[string]float64    { return v.node.Cache.Balances() }
func (v nodeView) Multipliers() []types.Multiplier { return v.node.Cache.Multipliers() }
func (v nodeView) Executors() []types.ExecutorDef  { return v.execs.All() }
