// Package store provee el registry de adaptadores de almacenamiento.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
)

// Adapter representa un adaptador de almacenamiento capaz de crear repositorios.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "postgres", "badger", "noop").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	// Shared retorna true si todos los nodos escriben en el mismo store
	// durable (postgres). False si cada nodo es dueño de su propio store
	// en disco (badger) o no hay store.
	Shared() bool

	Users() repository.UserRepository
	Multipliers() repository.MultiplierRepository
}

// Migratable interfaz opcional para conexiones que pueden aplicar el schema.
type Migratable interface {
	Migrate(ctx context.Context) error
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "badger", "noop"
	Name string

	// DSN connection string (postgres)
	DSN string

	// Path directorio de datos (badger). Vacío = en memoria.
	Path string

	// Pool settings (postgres)
	MaxOpenConns int
	MaxIdleConns int
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (available: %v)", cfg.Name, ListAdapters())
	}
	conn, err := a.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("adapter %s: %w", cfg.Name, err)
	}
	return conn, nil
}
