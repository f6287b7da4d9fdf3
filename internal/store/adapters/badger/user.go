package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// userRecord es el valor persistido bajo "user:<uuid>".
type userRecord struct {
	Name     string  `msgpack:"name"`
	Balance  float64 `msgpack:"balance"`
	LastSeen int64   `msgpack:"last_seen"`
}

type userRepo struct{ db *badger.DB }

func (r *userRepo) Get(ctx context.Context, userID string) (*types.UserBalance, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &types.UserBalance{
		ID:       userID,
		Name:     rec.Name,
		Balance:  rec.Balance,
		LastSeen: time.UnixMilli(rec.LastSeen),
	}, nil
}

func (r *userRepo) Upsert(ctx context.Context, u types.UserBalance) error {
	if u.ID == "" || !u.Known() {
		return repository.ErrInvalidInput
	}
	seen := u.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}
	key := []byte(userPrefix + u.ID)
	return r.db.Update(func(txn *badger.Txn) error {
		rec := userRecord{Name: u.Name, Balance: u.Balance, LastSeen: seen.UnixMilli()}
		if rec.Name == "" {
			// conservar el nombre guardado
			if item, err := txn.Get(key); err == nil {
				var prev userRecord
				if err := item.Value(func(val []byte) error { return msgpack.Unmarshal(val, &prev) }); err == nil {
					rec.Name = prev.Name
				}
			}
		}
		data, err := msgpack.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		return txn.Set(key, data)
	})
}
