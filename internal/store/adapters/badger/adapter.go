// Package badger implementa el adapter de store local por nodo sobre BadgerDB.
//
// Cada nodo es dueño de su propio directorio: no hay un store durable
// compartido, por eso Shared() es false y los DISABLE remotos también
// borran localmente (ver sync.remote_deletes).
package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/store"
)

func init() {
	store.RegisterAdapter(&badgerAdapter{})
}

const (
	userPrefix       = "user:"
	multiplierPrefix = "mult:"
	multiplierSeqKey = "seq:multiplier"
)

type badgerAdapter struct{}

func (a *badgerAdapter) Name() string { return "badger" }

func (a *badgerAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", cfg.Path, err)
	}
	seq, err := db.GetSequence([]byte(multiplierSeqKey), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger: sequence: %w", err)
	}
	return &badgerConnection{db: db, seq: seq}, nil
}

// badgerConnection implementa store.AdapterConnection.
type badgerConnection struct {
	db        *badger.DB
	seq       *badger.Sequence
	closeOnce sync.Once
}

func (c *badgerConnection) Name() string { return "badger" }
func (c *badgerConnection) Shared() bool { return false }

func (c *badgerConnection) Ping(ctx context.Context) error {
	if c.db.IsClosed() {
		return fmt.Errorf("badger: closed")
	}
	return nil
}

func (c *badgerConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.seq.Release()
		err = c.db.Close()
	})
	return err
}

func (c *badgerConnection) Users() repository.UserRepository { return &userRepo{db: c.db} }
func (c *badgerConnection) Multipliers() repository.MultiplierRepository {
	return &multiplierRepo{db: c.db, seq: c.seq}
}
