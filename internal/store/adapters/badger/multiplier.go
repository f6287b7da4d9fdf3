package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// multiplierRecord es el valor persistido bajo "mult:<id>".
type multiplierRecord struct {
	ID        int64             `msgpack:"id"`
	Node      string            `msgpack:"node"`
	Owner     string            `msgpack:"owner"`
	OwnerName string            `msgpack:"owner_name"`
	Scope     string            `msgpack:"scope"`
	Amount    int               `msgpack:"amount"`
	Minutes   int               `msgpack:"minutes"`
	EndTime   int64             `msgpack:"end_time"`
	State     string            `msgpack:"state"`
	Extra     map[string]string `msgpack:"extra"`
}

func toRecord(m types.Multiplier) multiplierRecord {
	return multiplierRecord{
		ID: m.ID, Node: m.NodeID, Owner: m.EnablerID, OwnerName: m.EnablerName,
		Scope: string(m.Scope), Amount: m.Amount, Minutes: m.DurationMinutes,
		EndTime: m.EndTime, State: string(m.State), Extra: m.Extra,
	}
}

func (r multiplierRecord) toDomain() types.Multiplier {
	return types.Multiplier{
		ID: r.ID, NodeID: r.Node, EnablerID: r.Owner, EnablerName: r.OwnerName,
		Scope: types.Scope(r.Scope), Amount: r.Amount, DurationMinutes: r.Minutes,
		EndTime: r.EndTime, State: types.MultiplierState(r.State), Extra: r.Extra,
	}
}

func multiplierKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", multiplierPrefix, id))
}

type multiplierRepo struct {
	db  *badger.DB
	seq *badger.Sequence
}

func (r *multiplierRepo) Save(ctx context.Context, m *types.Multiplier) error {
	if !m.Persisted() {
		next, err := r.seq.Next()
		if err != nil {
			return fmt.Errorf("next multiplier id: %w", err)
		}
		m.ID = int64(next) + 1 // los ids arrancan en 1, como en postgres
	} else {
		err := r.db.View(func(txn *badger.Txn) error {
			_, err := txn.Get(multiplierKey(m.ID))
			return err
		})
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("update multiplier %d: %w", m.ID, repository.ErrNotFound)
		}
		if err != nil {
			return err
		}
	}

	data, err := msgpack.Marshal(toRecord(*m))
	if err != nil {
		return fmt.Errorf("marshal multiplier: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(multiplierKey(m.ID), data)
	})
}

func (r *multiplierRepo) Delete(ctx context.Context, id int64, origin string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(multiplierKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var rec multiplierRecord
		if err := item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("decode multiplier %d: %w", id, err)
		}
		if rec.toDomain().Origin() != origin {
			return nil
		}
		return txn.Delete(multiplierKey(id))
	})
}

func (r *multiplierRepo) ListByNode(ctx context.Context, nodeID string) ([]types.Multiplier, error) {
	var out []types.Multiplier
	prefix := []byte(multiplierPrefix)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec multiplierRecord
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			m := rec.toDomain()
			if m.State == types.StateDisabled {
				continue
			}
			if m.NodeID == nodeID || m.Scope == types.ScopeGlobal {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
