// Package pg implementa el adapter PostgreSQL.
// Es el store compartido: todos los nodos del cluster escriben en la misma base.
package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/store"
	"github.com/dropDatabas3/coinsync/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// nullIfEmpty returns nil if the string is empty, otherwise returns the string pointer.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	// Verificar conectividad
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string                   { return "postgres" }
func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
func (c *pgConnection) Shared() bool                   { return true }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgConnection) Users() repository.UserRepository { return &userRepo{pool: c.pool} }
func (c *pgConnection) Multipliers() repository.MultiplierRepository {
	return &multiplierRepo{pool: c.pool}
}

// Migrate aplica los archivos .sql embebidos en orden lexicográfico.
// Todos son idempotentes (CREATE ... IF NOT EXISTS).
func (c *pgConnection) Migrate(ctx context.Context) error {
	files, err := fs.Glob(postgres.FS, postgres.Dir+"/*.sql")
	if err != nil {
		return fmt.Errorf("pg: list migrations: %w", err)
	}
	sort.Strings(files)
	for _, f := range files {
		sql, err := fs.ReadFile(postgres.FS, f)
		if err != nil {
			return fmt.Errorf("pg: read %s: %w", f, err)
		}
		if _, err := c.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("pg: apply %s: %w", f, err)
		}
	}
	return nil
}
