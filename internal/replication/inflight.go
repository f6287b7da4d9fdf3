package replication

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/dropDatabas3/coinsync/internal/metrics"
)

// inflight es el set acotado de messageIds propios que todavía no volvieron.
// Tope por tamaño (LRU) y por edad: una entrada más vieja que ttl se trata
// como ausente y se borra al cruzarla.
type inflight struct {
	mu  sync.Mutex
	ids *lru.Cache
	ttl time.Duration
	now func() time.Time
}

func newInflight(size int, ttl time.Duration, now func() time.Time) (*inflight, error) {
	ids, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &inflight{ids: ids, ttl: ttl, now: now}, nil
}

func (f *inflight) add(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked()
	f.ids.Add(id, f.now())
	metrics.InflightSize.Set(float64(f.ids.Len()))
}

// take retorna true si id era un mensaje propio vigente, y lo saca del set.
func (f *inflight) take(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.ids.Get(id)
	if !ok {
		return false
	}
	f.ids.Remove(id)
	metrics.InflightSize.Set(float64(f.ids.Len()))
	return !f.agedOut(v.(time.Time))
}

// forget saca id sin consumirlo (publish que no llegó al transporte).
func (f *inflight) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids.Remove(id)
	metrics.InflightSize.Set(float64(f.ids.Len()))
}

func (f *inflight) contains(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids.Contains(id)
}

func (f *inflight) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids.Len()
}

func (f *inflight) agedOut(sentAt time.Time) bool {
	return f.ttl > 0 && f.now().Sub(sentAt) > f.ttl
}

// pruneLocked descarta desde la cola más vieja mientras esté vencida.
func (f *inflight) pruneLocked() {
	for {
		_, v, ok := f.ids.GetOldest()
		if !ok || !f.agedOut(v.(time.Time)) {
			return
		}
		f.ids.RemoveOldest()
	}
}
