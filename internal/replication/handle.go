package replication

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// HandleMessage es el callback del transporte. Descarta el eco propio y
// aplica el resto bajo el Serializer del nodo. Nunca hace panic.
func (s *Service) HandleMessage(ctx context.Context, env wire.Envelope) {
	if s.sent.take(env.MessageID) {
		metrics.MessagesDropped.WithLabelValues(metrics.DropSelfEcho).Inc()
		s.log.Debug("self echo suppressed", logger.MessageID(env.MessageID))
		return
	}

	typ := string(env.Type())
	start := time.Now()
	s.node.Serial.Do(func() {
		if err := s.dispatch(ctx, env); err != nil {
			metrics.HandlerErrors.WithLabelValues(typ).Inc()
			s.log.Error("failed to apply envelope",
				logger.MessageID(env.MessageID), logger.MessageType(typ), logger.Err(err))
		}
	})
	metrics.ApplyLatency.WithLabelValues(typ).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

func (s *Service) dispatch(ctx context.Context, env wire.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch p := env.Payload.(type) {
	case wire.UserUpdate:
		s.applyUser(ctx, p)
	case wire.Executors:
		s.applyExecutors(p)
	case wire.MultiplierUpdate:
		s.applyMultiplierUpdate(p)
	case wire.MultiplierDisable:
		s.applyMultiplierDisable(ctx, p)
	default:
		s.log.Debug("ignoring payload", zap.String("payload", fmt.Sprintf("%T", env.Payload)))
	}
	return nil
}

func (s *Service) applyUser(ctx context.Context, p wire.UserUpdate) {
	if s.node.Store != nil {
		u := types.UserBalance{ID: p.UserID, Balance: p.Balance, LastSeen: s.node.Now()}
		if err := s.node.Store.Users().Upsert(ctx, u); err != nil {
			// el cache se actualiza igual; el log alcanza para re-aplicar a mano
			s.log.Error("storage upsert failed for remote balance",
				logger.UserID(p.UserID), logger.Balance(p.Balance), logger.Err(err))
		}
	}
	s.node.Cache.SetBalance(p.UserID, p.Balance)
}

func (s *Service) applyExecutors(p wire.Executors) {
	if p.Executor != nil {
		s.execs.Add(*p.Executor)
		return
	}
	all := s.execs.All()
	for i := range all {
		s.publish(wire.New(wire.Executors{Executor: &all[i]}))
	}
	s.log.Debug("answered executors pull", logger.Count(len(all)))
}

func (s *Service) applyMultiplierUpdate(p wire.MultiplierUpdate) {
	if p.Multiplier == nil {
		held := s.node.Cache.Multipliers()
		for i := range held {
			s.publish(wire.New(wire.MultiplierUpdate{
				Multiplier: &held[i],
				Enable:     held[i].State == types.StateEnabled,
			}))
		}
		s.log.Debug("answered multipliers pull", logger.Count(len(held)))
		return
	}
	m := s.localize(*p.Multiplier)
	s.applyMultiplier(m, p.Enable)
}

func (s *Service) applyMultiplierDisable(ctx context.Context, p wire.MultiplierDisable) {
	m := s.localize(p.Multiplier)
	s.node.Cache.RemoveMultiplier(m)

	if !m.Persisted() || !s.deletesRemote() {
		return
	}
	if err := s.node.Store.Multipliers().Delete(ctx, m.ID, m.Origin()); err != nil {
		s.log.Error("storage delete failed for remote disable",
			logger.MultiplierID(m.ID), logger.Err(err))
	}
}

// localize sustituye el nodo de un GLOBAL por el nombre de este nodo.
func (s *Service) localize(m types.Multiplier) types.Multiplier {
	if m.Scope == types.ScopeGlobal {
		m.NodeID = s.node.Name
	}
	return m
}

func (s *Service) deletesRemote() bool {
	if s.node.Store == nil {
		return false
	}
	switch s.opts.RemoteDeletes {
	case RemoteDeletesAlways:
		return true
	case RemoteDeletesNever:
		return false
	}
	return !s.node.Store.Shared()
}
