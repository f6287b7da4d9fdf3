// Package executor mantiene el registro replicado de executors.
package executor

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
)

// Registry es un mapa append-only por id. Una definición local nunca se
// pisa con una remota: el primero que llega gana.
type Registry struct {
	mu    sync.RWMutex
	items map[string]types.ExecutorDef
	log   *zap.Logger
}

// NewRegistry crea un registro vacío.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{items: make(map[string]types.ExecutorDef), log: log}
}

// Add registra def. Retorna false si el id ya existía.
func (r *Registry) Add(def types.ExecutorDef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[def.ID()]; ok {
		r.log.Debug("executor already registered", logger.ExecutorID(def.ID()))
		return false
	}
	r.items[def.ID()] = def
	return true
}

// Get retorna la definición por id.
func (r *Registry) Get(id string) (types.ExecutorDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.items[id]
	return def, ok
}

// All retorna las definiciones ordenadas por id.
func (r *Registry) All() []types.ExecutorDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ExecutorDef, 0, len(r.items))
	for _, def := range r.items {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len retorna la cantidad de executors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
