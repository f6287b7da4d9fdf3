package bus

import (
	"context"
	"sync"

	"github.com/dropDatabas3/coinsync/internal/wire"
)

// Hub conecta varios memoryBus del mismo proceso.
type Hub struct {
	mu      sync.RWMutex
	members map[*memoryBus]struct{}
}

// NewHub crea un hub vacío.
func NewHub() *Hub {
	return &Hub{members: make(map[*memoryBus]struct{})}
}

// DefaultHub es el hub compartido que usa New("memory").
var DefaultHub = NewHub()

func (h *Hub) join(m *memoryBus) {
	h.mu.Lock()
	h.members[m] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(m *memoryBus) {
	h.mu.Lock()
	delete(h.members, m)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*memoryBus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*memoryBus, 0, len(h.members))
	for m := range h.members {
		out = append(out, m)
	}
	return out
}

// Size retorna la cantidad de miembros suscriptos.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// memoryBus entrega de forma sincrónica a cada miembro del hub, pasando por
// el codec para que cada receptor tenga su propia copia.
type memoryBus struct {
	hub   *Hub
	codec wire.Codec

	mu       sync.RWMutex
	handler  Handler
	ctx      context.Context
	inflight sync.WaitGroup
}

// NewMemory crea un transporte in-process sobre hub.
func NewMemory(hub *Hub, codec wire.Codec) MessageBus {
	return &memoryBus{hub: hub, codec: codec}
}

func (m *memoryBus) Name() string { return "memory" }

func (m *memoryBus) Start(ctx context.Context, h Handler) error {
	m.mu.Lock()
	if m.handler != nil {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.handler, m.ctx = h, ctx
	m.mu.Unlock()
	m.hub.join(m)
	return nil
}

// Stop espera las entregas en curso: al volver, el handler ya no se invoca.
func (m *memoryBus) Stop() error {
	m.hub.leave(m)
	m.mu.Lock()
	m.handler = nil
	m.mu.Unlock()
	m.inflight.Wait()
	return nil
}

func (m *memoryBus) Publish(_ context.Context, env wire.Envelope) error {
	data, err := encode(m.Name(), m.codec, env)
	if err != nil {
		return err
	}
	// la lista se copia: un handler puede publicar sin deadlock
	for _, member := range m.hub.snapshot() {
		member.receive(data)
	}
	return nil
}

func (m *memoryBus) receive(data []byte) {
	m.mu.RLock()
	h, ctx := m.handler, m.ctx
	if h != nil {
		m.inflight.Add(1)
	}
	m.mu.RUnlock()
	if h == nil {
		return
	}
	defer m.inflight.Done()
	deliver(ctx, m.Name(), m.codec, data, h)
}
