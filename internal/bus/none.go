package bus

import (
	"context"

	"github.com/dropDatabas3/coinsync/internal/wire"
)

// noneBus descarta todo. Un nodo con "none" funciona aislado.
type noneBus struct{}

// NewNone crea un transporte que no publica ni recibe nada.
func NewNone() MessageBus { return noneBus{} }

func (noneBus) Name() string                                 { return "none" }
func (noneBus) Start(context.Context, Handler) error         { return nil }
func (noneBus) Stop() error                                  { return nil }
func (noneBus) Publish(context.Context, wire.Envelope) error { return nil }
