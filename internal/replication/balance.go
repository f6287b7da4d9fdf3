package replication

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
)

// SetBalance es el camino de escritura del origen: persiste y replica.
// Un fallo de storage se loguea; el cambio local sigue adelante.
func (s *Service) SetBalance(ctx context.Context, userID string, value float64) error {
	if value < 0 {
		return fmt.Errorf("set balance %s: %w", userID, types.ErrNegativeBalance)
	}
	s.persistBalance(ctx, userID, value)
	s.PublishUser(ctx, userID, value)
	return nil
}

// AddBalance suma delta al balance actual. Con multiply, un delta positivo
// se multiplica por el multiplier activo de este nodo. Retorna el nuevo
// balance.
func (s *Service) AddBalance(ctx context.Context, userID string, delta float64, multiply bool) (float64, error) {
	var (
		next float64
		err  error
	)
	s.node.Serial.Do(func() {
		cur := s.currentBalance(ctx, userID)
		if multiply && delta > 0 {
			if m, ok := s.node.Cache.Multiplier(s.node.Name); ok && !m.Expired(s.node.Now()) {
				delta *= float64(m.Amount)
			}
		}
		next = cur + delta
		if next < 0 {
			err = fmt.Errorf("add balance %s: %w", userID, types.ErrNegativeBalance)
			return
		}
		err = s.SetBalance(ctx, userID, next)
	})
	return next, err
}

// currentBalance lee del cache y cae al storage si el cache no lo conoce.
func (s *Service) currentBalance(ctx context.Context, userID string) float64 {
	if v := s.node.Cache.Balance(userID); v > types.UnknownBalance {
		return v
	}
	if s.node.Store == nil {
		return 0
	}
	u, err := s.node.Store.Users().Get(ctx, userID)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.log.Warn("storage read failed, assuming zero balance", logger.UserID(userID), logger.Err(err))
		}
		return 0
	}
	return u.Balance
}

func (s *Service) persistBalance(ctx context.Context, userID string, value float64) {
	if s.node.Store == nil {
		return
	}
	u := types.UserBalance{ID: userID, Balance: value, LastSeen: s.node.Now()}
	if err := s.node.Store.Users().Upsert(ctx, u); err != nil {
		s.log.Error("storage upsert failed for local balance",
			logger.UserID(userID), logger.Balance(value), logger.Err(err))
	}
}
