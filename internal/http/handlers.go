package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/multiplier"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// NodeState es la vista de solo lectura del nodo.
type NodeState interface {
	Name() string
	Balance(userID string) float64
	Balances() map[string]float64
	Multipliers() []types.Multiplier
	Executors() []types.ExecutorDef
}

// BalanceWriter es el camino de escritura de balances (replication.Service).
type BalanceWriter interface {
	SetBalance(ctx context.Context, userID string, value float64) error
	AddBalance(ctx context.Context, userID string, delta float64, multiply bool) (float64, error)
}

// MultiplierLifecycle es lo que usa la API del multiplier.Manager.
type MultiplierLifecycle interface {
	Create(ctx context.Context, req multiplier.Request) (types.Multiplier, error)
	Enable(ctx context.Context, key types.MultiplierKey) (types.Multiplier, error)
	Disable(ctx context.Context, key types.MultiplierKey) error
	Cancel(ctx context.Context, key types.MultiplierKey) error
}

type handlers struct {
	deps RouterDeps
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "node": h.deps.Node.Name()})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil {
		if err := h.deps.Ready(r); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type executorResp struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Cost     float64  `json:"cost"`
	Commands []string `json:"commands"`
}

type stateResp struct {
	Node        string             `json:"node"`
	Balances    map[string]float64 `json:"balances"`
	Multipliers []json.RawMessage  `json:"multipliers"`
	Executors   []executorResp     `json:"executors"`
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	resp := stateResp{
		Node:        h.deps.Node.Name(),
		Balances:    h.deps.Node.Balances(),
		Multipliers: []json.RawMessage{},
		Executors: lo.Map(h.deps.Node.Executors(), func(e types.ExecutorDef, _ int) executorResp {
			return executorResp{ID: e.ID(), Name: e.DisplayName(), Cost: e.Cost(), Commands: e.Commands()}
		}),
	}
	for _, m := range h.deps.Node.Multipliers() {
		raw, err := wire.EncodeMultiplier(m)
		if err != nil {
			logger.From(r.Context()).Warn("state: encode multiplier", logger.MultiplierID(m.ID), logger.Err(err))
			continue
		}
		resp.Multipliers = append(resp.Multipliers, raw)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// ─── Balances ───

type balanceResp struct {
	UserID  string  `json:"uuid"`
	Balance float64 `json:"coins"`
}

func (h *handlers) getBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v := h.deps.Node.Balance(id)
	if v <= types.UnknownBalance {
		WriteError(w, http.StatusNotFound, "not_found", "balance desconocido")
		return
	}
	WriteJSON(w, http.StatusOK, balanceResp{UserID: id, Balance: v})
}

type setBalanceReq struct {
	Coins *float64 `json:"coins"`
}

func (h *handlers) setBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setBalanceReq
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Coins == nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "coins es obligatorio")
		return
	}
	if err := h.deps.Balances.SetBalance(r.Context(), id, *req.Coins); err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, balanceResp{UserID: id, Balance: *req.Coins})
}

type addBalanceReq struct {
	Delta    float64 `json:"delta"`
	Multiply bool    `json:"multiply"`
}

func (h *handlers) addBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req addBalanceReq
	if !ReadJSON(w, r, &req) {
		return
	}
	next, err := h.deps.Balances.AddBalance(r.Context(), id, req.Delta, req.Multiply)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, balanceResp{UserID: id, Balance: next})
}

// ─── Multipliers ───

type createMultiplierReq struct {
	Scope       string            `json:"scope"`
	Node        string            `json:"node"`
	Amount      int               `json:"amount"`
	Minutes     int               `json:"minutes"`
	EnablerID   string            `json:"enabler_id"`
	EnablerName string            `json:"enabler_name"`
	Extra       map[string]string `json:"extra"`
	EnableNow   bool              `json:"enable_now"`
}

func (h *handlers) createMultiplier(w http.ResponseWriter, r *http.Request) {
	var req createMultiplierReq
	if !ReadJSON(w, r, &req) {
		return
	}
	scope := types.ScopePerNode
	if strings.TrimSpace(req.Scope) != "" {
		s, err := types.ParseScope(req.Scope)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		scope = s
	}
	m, err := h.deps.Multipliers.Create(r.Context(), multiplier.Request{
		Scope:           scope,
		NodeID:          req.Node,
		Amount:          req.Amount,
		DurationMinutes: req.Minutes,
		EnablerID:       req.EnablerID,
		EnablerName:     req.EnablerName,
		Extra:           req.Extra,
		EnableNow:       req.EnableNow,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeMultiplier(w, r, http.StatusCreated, m)
}

func (h *handlers) enableMultiplier(w http.ResponseWriter, r *http.Request) {
	key, ok := h.multiplierKey(w, r)
	if !ok {
		return
	}
	out, err := h.deps.Multipliers.Enable(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeMultiplier(w, r, http.StatusOK, out)
}

func (h *handlers) disableMultiplier(w http.ResponseWriter, r *http.Request) {
	key, ok := h.multiplierKey(w, r)
	if !ok {
		return
	}
	if err := h.deps.Multipliers.Disable(r.Context(), key); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) cancelMultiplier(w http.ResponseWriter, r *http.Request) {
	key, ok := h.multiplierKey(w, r)
	if !ok {
		return
	}
	if err := h.deps.Multipliers.Cancel(r.Context(), key); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// multiplierKey arma la identidad a partir del id de la ruta. Los ids son
// por storage: ?origin= elige el nodo que lo creó (default, este nodo) y
// ?node= filtra por slot. El estado lo valida el Manager.
func (h *handlers) multiplierKey(w http.ResponseWriter, r *http.Request) (types.MultiplierKey, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "id inválido")
		return types.MultiplierKey{}, false
	}
	q := r.URL.Query()
	origin := q.Get("origin")
	if origin == "" {
		origin = h.deps.Node.Name()
	}
	node := q.Get("node")
	found := lo.Filter(h.deps.Node.Multipliers(), func(m types.Multiplier, _ int) bool {
		return m.ID == id && m.Origin() == origin && (node == "" || m.NodeID == node)
	})
	switch len(found) {
	case 0:
		WriteError(w, http.StatusNotFound, "not_found", "multiplier no encontrado")
		return types.MultiplierKey{}, false
	case 1:
		return found[0].Key(), true
	default:
		WriteError(w, http.StatusConflict, "ambiguous_id", "id repetido, usar ?node=")
		return types.MultiplierKey{}, false
	}
}

func writeMultiplier(w http.ResponseWriter, r *http.Request, status int, m types.Multiplier) {
	raw, err := wire.EncodeMultiplier(m)
	if err != nil {
		logger.From(r.Context()).Error("encode multiplier", logger.MultiplierID(m.ID), logger.Err(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "encode multiplier")
		return
	}
	WriteJSON(w, status, json.RawMessage(raw))
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNegativeBalance), errors.Is(err, types.ErrInvalidMultiplier):
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, types.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, repository.ErrNoDatabase):
		WriteError(w, http.StatusServiceUnavailable, "no_database", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
