package multiplier

import (
	"context"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/app/nodectx"
	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
)

// Replicator es la parte de replication.Service que usa el Manager.
type Replicator interface {
	UpdateMultiplier(ctx context.Context, m types.Multiplier)
	EnableMultiplier(ctx context.Context, m types.Multiplier)
	DisableMultiplier(ctx context.Context, m types.Multiplier)
}

// Request describe un multiplier nuevo.
type Request struct {
	Scope           types.Scope
	NodeID          string // vacío = este nodo; se ignora para GLOBAL
	Amount          int
	DurationMinutes int
	EnablerID       string
	EnablerName     string
	Extra           map[string]string

	// EnableNow habilita en el acto, desplazando al activo si lo hay.
	EnableNow bool
}

// Options parámetros del Manager.
type Options struct {
	Tick         time.Duration // default 1s
	SnapshotPath string        // vacío = sin snapshot
	Notifier     Notifier      // default LogNotifier
}

const defaultTick = time.Second

// Manager aplica las transiciones de estado de los multipliers de este nodo.
type Manager struct {
	node     *nodectx.Node
	repl     Replicator
	notify   Notifier
	tick     time.Duration
	snapshot *snapshotFile
	log      *zap.Logger
}

// New crea el Manager.
func New(node *nodectx.Node, repl Replicator, opts Options) *Manager {
	log := node.Log.Named("multiplier").With(logger.NodeID(node.Name))
	m := &Manager{
		node:   node,
		repl:   repl,
		notify: opts.Notifier,
		tick:   opts.Tick,
		log:    log,
	}
	if m.notify == nil {
		m.notify = LogNotifier{Log: log}
	}
	if m.tick <= 0 {
		m.tick = defaultTick
	}
	if opts.SnapshotPath != "" {
		m.snapshot = &snapshotFile{path: opts.SnapshotPath, log: log}
	}
	return m
}

func (mg *Manager) owned(m types.Multiplier) bool {
	return m.Origin() == mg.node.Name
}

func (mg *Manager) repo() (repository.MultiplierRepository, error) {
	if mg.node.Store == nil {
		return nil, repository.ErrNoDatabase
	}
	return mg.node.Store.Multipliers(), nil
}

// ─── Operaciones ───

// Create persiste un multiplier nuevo en QUEUED y lo replica. Si el slot del
// nodo está libre (o EnableNow) se habilita en el acto.
func (mg *Manager) Create(ctx context.Context, req Request) (types.Multiplier, error) {
	m := types.Multiplier{
		ID:              types.NoID,
		Scope:           req.Scope,
		NodeID:          req.NodeID,
		Amount:          req.Amount,
		DurationMinutes: req.DurationMinutes,
		EnablerID:       req.EnablerID,
		EnablerName:     req.EnablerName,
		State:           types.StateQueued,
		Extra:           maps.Clone(req.Extra),
	}
	if m.Scope == "" {
		m.Scope = types.ScopePerNode
	}
	if m.NodeID == "" || m.Scope == types.ScopeGlobal {
		m.NodeID = mg.node.Name
	}
	if m.Extra == nil {
		m.Extra = make(map[string]string, 1)
	}
	m.Extra[types.ExtraOrigin] = mg.node.Name
	if err := m.Validate(); err != nil {
		return types.Multiplier{}, err
	}

	var err error
	mg.node.Serial.Do(func() {
		repo, rerr := mg.repo()
		if rerr != nil {
			err = rerr
			return
		}
		if err = repo.Save(ctx, &m); err != nil {
			err = fmt.Errorf("create multiplier: %w", err)
			return
		}
		metrics.MultiplierTransitions.WithLabelValues(string(types.StateQueued)).Inc()
		mg.log.Info("multiplier created", logger.MultiplierID(m.ID), zap.String("scope", string(m.Scope)))
		mg.repl.UpdateMultiplier(ctx, m)

		if req.EnableNow {
			m, err = mg.enableLocked(ctx, m)
		} else {
			mg.promoteLocked(ctx, m.NodeID)
			if cur, ok := mg.node.Cache.Multiplier(m.NodeID); ok && cur.SameAs(m) {
				m = cur
			}
		}
		mg.saveSnapshot()
	})
	return m, err
}

// Enable pasa la instancia key de QUEUED a ENABLED, deshabilitando antes al
// activo del nodo. El estado que vale es el del cache, no el de la copia que
// tenga quien llama.
func (mg *Manager) Enable(ctx context.Context, key types.MultiplierKey) (types.Multiplier, error) {
	var (
		out types.Multiplier
		err error
	)
	mg.node.Serial.Do(func() {
		m, lerr := mg.lookupLocked(key, "enable")
		if lerr != nil {
			err = lerr
			return
		}
		if out, err = mg.enableLocked(ctx, m); err != nil {
			return
		}
		mg.saveSnapshot()
	})
	return out, err
}

// Disable pasa la instancia key de ENABLED a DISABLED y promueve al
// siguiente en cola.
func (mg *Manager) Disable(ctx context.Context, key types.MultiplierKey) error {
	var err error
	mg.node.Serial.Do(func() {
		m, lerr := mg.lookupLocked(key, "disable")
		if lerr != nil {
			err = lerr
			return
		}
		if err = mg.disableLocked(ctx, m); err != nil {
			return
		}
		mg.promoteLocked(ctx, m.NodeID)
		mg.saveSnapshot()
	})
	return err
}

// Cancel descarta un multiplier que nunca se habilitó. Sin notificación.
func (mg *Manager) Cancel(ctx context.Context, key types.MultiplierKey) error {
	var err error
	mg.node.Serial.Do(func() {
		m, lerr := mg.lookupLocked(key, "cancel")
		if lerr != nil {
			err = lerr
			return
		}
		if m.State != types.StateQueued {
			err = fmt.Errorf("%w: cancel %s multiplier (id=%d)", types.ErrInvalidTransition, m.State, m.ID)
			return
		}
		if err = m.Transition(types.StateDisabled); err != nil {
			return
		}
		mg.deleteStored(ctx, m)
		metrics.MultiplierTransitions.WithLabelValues(string(types.StateDisabled)).Inc()
		mg.repl.DisableMultiplier(ctx, m)
		mg.log.Info("multiplier cancelled", logger.MultiplierID(m.ID))
		mg.saveSnapshot()
	})
	return err
}

// lookupLocked resuelve key contra el cache. Solo el nodo de origen cambia
// el estado de una instancia; el resto espera su replicación.
func (mg *Manager) lookupLocked(key types.MultiplierKey, op string) (types.Multiplier, error) {
	m, ok := mg.node.Cache.Find(key)
	if !ok {
		return types.Multiplier{}, fmt.Errorf("%s multiplier %s: %w", op, key, repository.ErrNotFound)
	}
	if !mg.owned(m) {
		return m, fmt.Errorf("%w: %s multiplier %s owned by %q", types.ErrInvalidTransition, op, key, m.Origin())
	}
	return m, nil
}

// ─── Transiciones (con el Serializer tomado) ───

func (mg *Manager) enableLocked(ctx context.Context, m types.Multiplier) (types.Multiplier, error) {
	if m.State != types.StateQueued {
		return m, fmt.Errorf("%w: %s -> %s (id=%d)", types.ErrInvalidTransition, m.State, types.StateEnabled, m.ID)
	}
	if cur, ok := mg.node.Cache.Multiplier(m.NodeID); ok && !cur.SameAs(m) {
		if err := mg.disableLocked(ctx, cur); err != nil {
			return m, fmt.Errorf("supersede multiplier %d: %w", cur.ID, err)
		}
	}

	if err := m.Transition(types.StateEnabled); err != nil {
		return m, err
	}
	m.EndTime = mg.node.Now().Add(m.Duration()).UnixMilli()

	if repo, err := mg.repo(); err == nil {
		if err := repo.Save(ctx, &m); err != nil {
			mg.log.Error("persist enabled multiplier failed", logger.MultiplierID(m.ID), logger.Err(err))
		}
	}
	metrics.MultiplierTransitions.WithLabelValues(string(types.StateEnabled)).Inc()
	mg.notify.MultiplierEnabled(ctx, m)
	mg.repl.EnableMultiplier(ctx, m)
	return m, nil
}

func (mg *Manager) disableLocked(ctx context.Context, m types.Multiplier) error {
	if m.State != types.StateEnabled {
		return fmt.Errorf("%w: disable %s multiplier (id=%d)", types.ErrInvalidTransition, m.State, m.ID)
	}
	if err := m.Transition(types.StateDisabled); err != nil {
		return err
	}
	mg.deleteStored(ctx, m)
	metrics.MultiplierTransitions.WithLabelValues(string(types.StateDisabled)).Inc()
	mg.repl.DisableMultiplier(ctx, m)
	mg.log.Info("multiplier disabled", logger.MultiplierID(m.ID))
	return nil
}

// promoteLocked habilita el primer multiplier propio de la cola del nodo si
// el slot está libre. Los de otro origen esperan el enable de su dueño.
// Retorna true si habilitó alguno.
func (mg *Manager) promoteLocked(ctx context.Context, nodeID string) bool {
	if _, ok := mg.node.Cache.Multiplier(nodeID); ok {
		return false
	}
	for _, next := range mg.node.Cache.Queued(nodeID) {
		if !mg.owned(next) {
			continue
		}
		if _, err := mg.enableLocked(ctx, next); err != nil {
			mg.log.Error("promote queued multiplier failed", logger.MultiplierID(next.ID), logger.Err(err))
			continue
		}
		return true
	}
	return false
}

func (mg *Manager) deleteStored(ctx context.Context, m types.Multiplier) {
	if !m.Persisted() {
		return
	}
	repo, err := mg.repo()
	if err != nil {
		return
	}
	if err := repo.Delete(ctx, m.ID, m.Origin()); err != nil {
		mg.log.Error("delete multiplier failed", logger.MultiplierID(m.ID), logger.Err(err))
	}
}

// ─── Expiración ───

// Run corre el ticker de expiración hasta que ctx se cancela.
func (mg *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(mg.tick)
	defer t.Stop()
	mg.log.Info("expiry ticker started", logger.Duration(mg.tick))
	for {
		select {
		case <-ctx.Done():
			mg.log.Info("expiry ticker stopped")
			return nil
		case <-t.C:
			mg.Tick(ctx)
		}
	}
}

// Tick vence los multipliers con now >= EndTime y promueve la cola local.
func (mg *Manager) Tick(ctx context.Context) {
	mg.node.Serial.Do(func() {
		now := mg.node.Now()
		changed := false
		slots := map[string]struct{}{mg.node.Name: {}}
		for _, m := range mg.node.Cache.Active() {
			if !m.Expired(now) {
				continue
			}
			changed = true
			if !mg.owned(m) {
				// el dueño replica la baja; acá solo no se sigue aplicando
				mg.node.Cache.RemoveMultiplier(m)
				mg.log.Debug("dropped expired foreign multiplier", logger.MultiplierID(m.ID))
				continue
			}
			if err := mg.disableLocked(ctx, m); err != nil {
				mg.log.Error("expire multiplier failed", logger.MultiplierID(m.ID), logger.Err(err))
			}
			slots[m.NodeID] = struct{}{}
		}

		for nodeID := range slots {
			if mg.promoteLocked(ctx, nodeID) {
				changed = true
			}
		}
		metrics.ActiveMultipliers.Set(float64(len(mg.node.Cache.Active())))
		if changed {
			mg.saveSnapshot()
		}
	})
}

// ─── Snapshot / restore ───

// saveSnapshot escribe los multipliers propios. Los ajenos se recuperan con
// un pull al arrancar.
func (mg *Manager) saveSnapshot() {
	if mg.snapshot == nil {
		return
	}
	var own []types.Multiplier
	for _, m := range mg.node.Cache.Multipliers() {
		if mg.owned(m) {
			own = append(own, m)
		}
	}
	if err := mg.snapshot.write(own); err != nil {
		mg.log.Warn("snapshot write failed", logger.Err(err))
	}
}

// Restore carga al cache lo que haya en storage y en el snapshot. Storage
// gana sobre el snapshot; los vencidos se descartan (y, si son propios, se
// borran del storage). Retorna la cantidad cargada.
func (mg *Manager) Restore(ctx context.Context) (int, error) {
	var (
		stored   []types.Multiplier
		snap     []types.Multiplier
		firstErr error
	)
	if repo, err := mg.repo(); err == nil {
		if stored, err = repo.ListByNode(ctx, mg.node.Name); err != nil {
			firstErr = fmt.Errorf("restore from storage: %w", err)
		}
	}
	if mg.snapshot != nil {
		var err error
		if snap, err = mg.snapshot.load(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	merged := append([]types.Multiplier(nil), stored...)
	for _, s := range snap {
		dup := false
		for _, m := range stored {
			if m.SameAs(s) {
				dup = true
				break
			}
		}
		if !dup {
			merged = append(merged, s)
		}
	}

	loaded := 0
	mg.node.Serial.Do(func() {
		now := mg.node.Now()
		for _, m := range merged {
			if m.Scope == types.ScopeGlobal {
				m.NodeID = mg.node.Name
			}
			switch {
			case m.State == types.StateDisabled:
				continue
			case m.Expired(now):
				if mg.owned(m) {
					mg.deleteStored(ctx, m)
				}
				mg.log.Info("dropping expired multiplier on restore", logger.MultiplierID(m.ID))
				continue
			case m.State == types.StateEnabled:
				if cur, ok := mg.node.Cache.Multiplier(m.NodeID); ok && cur.EndTime >= m.EndTime {
					continue
				}
				mg.node.Cache.PutMultiplier(m.NodeID, m)
			default:
				mg.node.Cache.Enqueue(m)
			}
			loaded++
		}
		mg.saveSnapshot()
	})

	mg.log.Info("multipliers restored", logger.Count(loaded),
		zap.Int("from_storage", len(stored)), zap.Int("from_snapshot", len(snap)))
	return loaded, firstErr
}
