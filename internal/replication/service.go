package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/app/nodectx"
	"github.com/dropDatabas3/coinsync/internal/bus"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/executor"
	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// ErrAlreadyStarted lo retorna Start si el servicio ya corre.
var ErrAlreadyStarted = errors.New("replication: already started")

// Service publica mutaciones locales y aplica las remotas.
type Service struct {
	node  *nodectx.Node
	bus   bus.MessageBus
	execs *executor.Registry
	opts  Options
	log   *zap.Logger

	sent   *inflight
	outbox chan wire.Envelope

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New crea el servicio. No se suscribe al transporte hasta Start.
func New(node *nodectx.Node, b bus.MessageBus, execs *executor.Registry, opts Options) (*Service, error) {
	opts = opts.withDefaults()
	sent, err := newInflight(opts.InflightMax, opts.InflightTTL, node.Now)
	if err != nil {
		return nil, fmt.Errorf("replication: inflight set: %w", err)
	}
	if execs == nil {
		execs = executor.NewRegistry(node.Log)
	}
	return &Service{
		node:   node,
		bus:    b,
		execs:  execs,
		opts:   opts,
		log:    node.Log.Named("replication").With(logger.NodeID(node.Name), logger.Transport(b.Name())),
		sent:   sent,
		outbox: make(chan wire.Envelope, opts.OutboxSize),
	}, nil
}

// Executors retorna el registro que alimenta GET_EXECUTORS.
func (s *Service) Executors() *executor.Registry { return s.execs }

// Start levanta el outbox y suscribe HandleMessage al transporte.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(logger.ToContext(ctx, s.log))
	done := make(chan struct{})
	go s.runOutbox(runCtx, done)

	if err := s.bus.Start(runCtx, s.HandleMessage); err != nil {
		cancel()
		<-done
		return fmt.Errorf("replication: start %s bus: %w", s.bus.Name(), err)
	}
	s.cancel, s.done = cancel, done
	s.log.Info("replication started")
	return nil
}

// Stop desregistra el callback del transporte y después corta el outbox.
// Lo que quedó en el outbox se descarta.
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	err := s.bus.Stop()
	if cancel != nil {
		cancel()
		<-done
	}
	if pending := len(s.outbox); pending > 0 {
		s.log.Warn("dropping unsent envelopes on stop", logger.Count(pending))
	}
	s.log.Info("replication stopped")
	return err
}

func (s *Service) runOutbox(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-s.outbox:
			metrics.OutboxDepth.Set(float64(len(s.outbox)))
			s.send(ctx, env)
		}
	}
}

func (s *Service) send(ctx context.Context, env wire.Envelope) {
	if err := s.bus.Publish(ctx, env); err != nil {
		s.sent.forget(env.MessageID)
		s.log.Warn("publish failed",
			logger.MessageID(env.MessageID), logger.MessageType(string(env.Type())), logger.Err(err))
	}
}

// publish registra el id como propio y lo encola. Nunca bloquea.
func (s *Service) publish(env wire.Envelope) {
	s.sent.add(env.MessageID)
	select {
	case s.outbox <- env:
		metrics.OutboxDepth.Set(float64(len(s.outbox)))
	default:
		s.sent.forget(env.MessageID)
		metrics.MessagesDropped.WithLabelValues(metrics.DropOutboxFull).Inc()
		s.log.Warn("outbox full, dropping envelope",
			logger.MessageID(env.MessageID), logger.MessageType(string(env.Type())))
	}
}

// publishSync publica sin pasar por el outbox y retorna el error.
func (s *Service) publishSync(ctx context.Context, env wire.Envelope) error {
	s.sent.add(env.MessageID)
	if err := s.bus.Publish(ctx, env); err != nil {
		s.sent.forget(env.MessageID)
		return fmt.Errorf("replication: publish %s: %w", env.Type(), err)
	}
	return nil
}

// swallow recupera un panic de una operación saliente: publicar nunca le
// rompe la operación al caller.
func (s *Service) swallow(op string) {
	if r := recover(); r != nil {
		s.log.Error("outbound operation panicked", logger.Op(op), zap.Any("panic", r))
	}
}

// ─── Outbound ───

// PublishUser actualiza el cache y replica el balance. balance <= -1 es el
// sentinel de desconocido y no hace nada.
func (s *Service) PublishUser(ctx context.Context, userID string, balance float64) {
	defer s.swallow("publish_user")
	if !(balance > types.UnknownBalance) {
		return
	}
	s.node.Cache.SetBalance(userID, balance)
	s.publish(wire.New(wire.UserUpdate{UserID: userID, Balance: balance}))
}

// UpdateMultiplier aplica m al cache según su estado y lo replica.
func (s *Service) UpdateMultiplier(ctx context.Context, m types.Multiplier) {
	defer s.swallow("update_multiplier")
	s.applyMultiplier(m, false)
	cp := m.Clone()
	s.publish(wire.New(wire.MultiplierUpdate{Multiplier: &cp}))
}

// EnableMultiplier ocupa el slot activo del nodo y replica con enable=true.
func (s *Service) EnableMultiplier(ctx context.Context, m types.Multiplier) {
	defer s.swallow("enable_multiplier")
	s.node.Cache.PutMultiplier(m.NodeID, m)
	cp := m.Clone()
	s.publish(wire.New(wire.MultiplierUpdate{Multiplier: &cp, Enable: true}))
}

// DisableMultiplier saca m del cache y replica la baja.
func (s *Service) DisableMultiplier(ctx context.Context, m types.Multiplier) {
	defer s.swallow("disable_multiplier")
	s.node.Cache.RemoveMultiplier(m)
	s.publish(wire.New(wire.MultiplierDisable{Multiplier: m.Clone()}))
}

// RequestMultipliers pide a los demás nodos sus multipliers.
func (s *Service) RequestMultipliers(ctx context.Context) error {
	return s.publishSync(ctx, wire.New(wire.MultiplierUpdate{}))
}

// RequestExecutors pide a los demás nodos sus executors.
func (s *Service) RequestExecutors(ctx context.Context) error {
	return s.publishSync(ctx, wire.New(wire.Executors{}))
}

// applyMultiplier enruta m en el cache según su estado. enable fuerza el
// slot activo aunque el estado venga desfasado.
func (s *Service) applyMultiplier(m types.Multiplier, enable bool) {
	switch {
	case m.State == types.StateDisabled:
		s.node.Cache.RemoveMultiplier(m)
	case enable || m.State == types.StateEnabled:
		s.node.Cache.PutMultiplier(m.NodeID, m)
	default:
		s.node.Cache.Enqueue(m)
	}
}
