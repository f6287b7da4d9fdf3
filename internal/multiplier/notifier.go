package multiplier

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
)

// Notifier recibe el evento de habilitación (anuncios, logros, etc).
type Notifier interface {
	MultiplierEnabled(ctx context.Context, m types.Multiplier)
}

// LogNotifier es el Notifier por defecto: solo loguea.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) MultiplierEnabled(_ context.Context, m types.Multiplier) {
	if n.Log == nil {
		return
	}
	n.Log.Info("multiplier enabled",
		logger.MultiplierID(m.ID),
		logger.NodeID(m.NodeID),
		zap.Int("amount", m.Amount),
		zap.String("enabler", m.EnablerName),
		zap.Time("ends_at", m.EndAt()),
	)
}

// NotifierFunc adapta una función a Notifier.
type NotifierFunc func(ctx context.Context, m types.Multiplier)

func (f NotifierFunc) MultiplierEnabled(ctx context.Context, m types.Multiplier) { f(ctx, m) }
