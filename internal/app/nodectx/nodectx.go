// Package nodectx define el contexto explícito de un nodo: lo que antes
// eran singletons de proceso (cache, storage, logger, reloj) se pasa a cada
// constructor a través de Node.
package nodectx

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/cache"
	"github.com/dropDatabas3/coinsync/internal/store"
)

// Serializer es el contexto de ejecución serializado del nodo. Todo lo que
// lee y decide sobre el estado de multipliers (dispatch entrante, timers,
// acciones locales) pasa por acá.
type Serializer struct {
	mu sync.Mutex
}

// Do ejecuta fn con el nodo tomado. No es reentrante.
func (s *Serializer) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Node agrupa las dependencias compartidas de un nodo.
type Node struct {
	Name   string
	Cache  *cache.Cache
	Store  store.AdapterConnection
	Log    *zap.Logger
	Serial *Serializer
	Now    func() time.Time
}

// New arma un Node. log nil usa zap.NewNop().
func New(name string, c *cache.Cache, conn store.AdapterConnection, log *zap.Logger) *Node {
	if c == nil {
		c = cache.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Node{
		Name:   name,
		Cache:  c,
		Store:  conn,
		Log:    log,
		Serial: &Serializer{},
		Now:    time.Now,
	}
}
