// Package cache es la vista en memoria de un nodo: balances por usuario y,
// por cada nodo lógico, un multiplier activo más su cola de QUEUED.
//
// No hace I/O. Es seguro para uso concurrente, pero secuencias compuestas
// (leer el activo, decidir, reemplazar) deben correr bajo el Serializer
// del nodo (ver internal/replication).
package cache

import (
	"sort"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
)

// Unknown es lo que retorna Balance para un usuario nunca observado.
const Unknown = types.UnknownBalance

// Cache guarda el estado que este proceso cree actual.
type Cache struct {
	// balances: userID -> float64, sin expiración (la retención es problema del storage)
	balances *gocache.Cache

	mu     sync.RWMutex
	active map[string]types.Multiplier   // nodeID -> ENABLED
	queued map[string][]types.Multiplier // nodeID -> QUEUED, en orden de llegada
}

// New crea un Cache vacío.
func New() *Cache {
	return &Cache{
		balances: gocache.New(gocache.NoExpiration, 0),
		active:   make(map[string]types.Multiplier),
		queued:   make(map[string][]types.Multiplier),
	}
}

// ─── Balances ───

// Balance retorna el último valor conocido o Unknown.
func (c *Cache) Balance(userID string) float64 {
	v, ok := c.balances.Get(userID)
	if !ok {
		return Unknown
	}
	f, _ := v.(float64)
	return f
}

// SetBalance no valida negativos: es responsabilidad del caller.
func (c *Cache) SetBalance(userID string, value float64) {
	c.balances.Set(userID, value, gocache.NoExpiration)
}

func (c *Cache) RemoveUser(userID string) {
	c.balances.Delete(userID)
}

// Balances retorna una copia de todos los balances.
func (c *Cache) Balances() map[string]float64 {
	return lo.MapValues(c.balances.Items(), func(it gocache.Item, _ string) float64 {
		f, _ := it.Object.(float64)
		return f
	})
}

// ─── Multipliers ───

// Multiplier retorna el multiplier activo del nodo.
func (c *Cache) Multiplier(nodeID string) (types.Multiplier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.active[nodeID]
	if !ok {
		return types.Multiplier{}, false
	}
	return m.Clone(), true
}

// PutMultiplier ocupa el slot activo del nodo, reemplazando al anterior.
// Si la misma instancia estaba en la cola, se saca de ahí.
func (c *Cache) PutMultiplier(nodeID string, m types.Multiplier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeQueuedLocked(m)
	c.active[nodeID] = m.Clone()
}

// Enqueue agrega (o actualiza, si ya está) un multiplier a la cola de m.NodeID.
func (c *Cache) Enqueue(m types.Multiplier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queued[m.NodeID]
	for i := range q {
		if q[i].SameAs(m) {
			q[i] = m.Clone()
			return
		}
	}
	c.queued[m.NodeID] = append(q, m.Clone())
}

// Queued retorna la cola del nodo, en orden.
func (c *Cache) Queued(nodeID string) []types.Multiplier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Map(c.queued[nodeID], func(m types.Multiplier, _ int) types.Multiplier { return m.Clone() })
}

// Dequeue saca la cabeza de la cola del nodo.
func (c *Cache) Dequeue(nodeID string) (types.Multiplier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queued[nodeID]
	if len(q) == 0 {
		return types.Multiplier{}, false
	}
	head := q[0]
	if len(q) == 1 {
		delete(c.queued, nodeID)
	} else {
		c.queued[nodeID] = q[1:]
	}
	return head, true
}

// Find busca la instancia por identidad: primero en los slots activos y
// después en las colas.
func (c *Cache) Find(key types.MultiplierKey) (types.Multiplier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cur := range c.active {
		if cur.Key() == key {
			return cur.Clone(), true
		}
	}
	for _, q := range c.queued {
		if m, ok := lo.Find(q, func(x types.Multiplier) bool { return x.Key() == key }); ok {
			return m.Clone(), true
		}
	}
	return types.Multiplier{}, false
}

// RemoveMultiplier saca la instancia de donde esté (slot activo o cola).
// Retorna false si no estaba.
func (c *Cache) RemoveMultiplier(m types.Multiplier) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.removeQueuedLocked(m)
	for node, cur := range c.active {
		if cur.SameAs(m) {
			delete(c.active, node)
			removed = true
		}
	}
	return removed
}

func (c *Cache) removeQueuedLocked(m types.Multiplier) bool {
	removed := false
	for node, q := range c.queued {
		kept := lo.Reject(q, func(x types.Multiplier, _ int) bool { return x.SameAs(m) })
		if len(kept) == len(q) {
			continue
		}
		removed = true
		if len(kept) == 0 {
			delete(c.queued, node)
		} else {
			c.queued[node] = kept
		}
	}
	return removed
}

// Active retorna los multipliers activos, ordenados por nodo.
func (c *Cache) Active() []types.Multiplier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes := lo.Keys(c.active)
	sort.Strings(nodes)
	return lo.Map(nodes, func(n string, _ int) types.Multiplier { return c.active[n].Clone() })
}

// Multipliers retorna todo lo que el nodo tiene: activos y luego encolados.
func (c *Cache) Multipliers() []types.Multiplier {
	out := c.Active()
	c.mu.RLock()
	defer c.mu.RUnlock()
	nodes := lo.Keys(c.queued)
	sort.Strings(nodes)
	for _, n := range nodes {
		for _, m := range c.queued[n] {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Reset descarta todo el estado. Lo llama el nodo al detenerse, después de
// cancelar los timers de expiración.
func (c *Cache) Reset() {
	c.balances.Flush()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = make(map[string]types.Multiplier)
	c.queued = make(map[string][]types.Multiplier)
}
