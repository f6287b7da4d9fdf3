package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/coinsync/internal/domain/repository"
	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/multiplier"
)

type fakeNode struct {
	name     string
	balances map[string]float64
	mults    []types.Multiplier
	execs    []types.ExecutorDef
}

func (f *fakeNode) Name() string { return f.name }
func (f *fakeNode) Balance(id string) float64 {
	if v, ok := f.balances[id]; ok {
		return v
	}
	return types.UnknownBalance
}
func (f *fakeNode) Balances() map[string]float64    { return f.balances }
func (f *fakeNode) Multipliers() []types.Multiplier { return f.mults }
func (f *fakeNode) Executors() []types.ExecutorDef  { return f.execs }

type fakeBalances struct {
	set map[string]float64
}

func (f *fakeBalances) SetBalance(_ context.Context, id string, v float64) error {
	if v < 0 {
		return fmt.Errorf("set balance %s: %w", id, types.ErrNegativeBalance)
	}
	f.set[id] = v
	return nil
}

func (f *fakeBalances) AddBalance(_ context.Context, id string, delta float64, multiply bool) (float64, error) {
	if multiply {
		delta *= 2
	}
	next := f.set[id] + delta
	if next < 0 {
		return 0, fmt.Errorf("add balance %s: %w", id, types.ErrNegativeBalance)
	}
	f.set[id] = next
	return next, nil
}

type fakeLifecycle struct {
	created   []multiplier.Request
	enabled   []types.MultiplierKey
	disabled  []types.MultiplierKey
	cancelled []types.MultiplierKey
	enableErr error
}

func (f *fakeLifecycle) Create(_ context.Context, req multiplier.Request) (types.Multiplier, error) {
	f.created = append(f.created, req)
	m := types.Multiplier{
		ID: 7, Scope: req.Scope, NodeID: "lobby", Amount: req.Amount,
		DurationMinutes: req.DurationMinutes, State: types.StateQueued,
	}
	if err := m.Validate(); err != nil {
		return types.Multiplier{}, err
	}
	return m, nil
}

func (f *fakeLifecycle) Enable(_ context.Context, key types.MultiplierKey) (types.Multiplier, error) {
	if f.enableErr != nil {
		return types.Multiplier{}, f.enableErr
	}
	f.enabled = append(f.enabled, key)
	return types.Multiplier{
		ID: key.ID, Scope: key.Scope, NodeID: "lobby", Amount: 2, DurationMinutes: 5,
		State: types.StateEnabled, EndTime: 1000,
	}, nil
}

func (f *fakeLifecycle) Disable(_ context.Context, key types.MultiplierKey) error {
	f.disabled = append(f.disabled, key)
	return nil
}

func (f *fakeLifecycle) Cancel(_ context.Context, key types.MultiplierKey) error {
	f.cancelled = append(f.cancelled, key)
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *fakeNode, *fakeBalances, *fakeLifecycle) {
	t.Helper()
	node := &fakeNode{
		name:     "lobby",
		balances: map[string]float64{"u1": 150},
		mults: []types.Multiplier{
			{ID: 1, Scope: types.ScopePerNode, NodeID: "lobby", Amount: 2, DurationMinutes: 5, State: types.StateQueued},
			{ID: 2, Scope: types.ScopePerNode, NodeID: "lobby", Amount: 3, DurationMinutes: 5, State: types.StateQueued},
			{ID: 2, Scope: types.ScopePerNode, NodeID: "survival", Amount: 3, DurationMinutes: 5, State: types.StateEnabled, EndTime: 99},
		},
		execs: []types.ExecutorDef{types.NewExecutorDef("vip", "VIP", 100, []string{"give {player} diamond"})},
	}
	bal := &fakeBalances{set: map[string]float64{}}
	lc := &fakeLifecycle{}
	return NewRouter(RouterDeps{Node: node, Balances: bal, Multipliers: lc}), node, bal, lc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	require.Contains(t, rec.Body.String(), `"node":"lobby"`)
}

func TestReadyz_NotReady(t *testing.T) {
	h := NewRouter(RouterDeps{
		Node:  &fakeNode{name: "lobby"},
		Ready: func(*http.Request) error { return fmt.Errorf("storage down") },
	})
	rec := do(t, h, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "not_ready")
}

func TestState(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Node        string             `json:"node"`
		Balances    map[string]float64 `json:"balances"`
		Multipliers []map[string]any   `json:"multipliers"`
		Executors   []map[string]any   `json:"executors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "lobby", got.Node)
	require.Equal(t, 150.0, got.Balances["u1"])
	require.Len(t, got.Multipliers, 3)
	require.Equal(t, "QUEUED", got.Multipliers[0]["state"])
	require.Len(t, got.Executors, 1)
	require.Equal(t, "vip", got.Executors[0]["id"])
}

func TestBalances(t *testing.T) {
	h, _, bal, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/v1/balances/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"uuid":"u1","coins":150}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/v1/balances/nadie", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/balances/u2", `{"coins":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10.0, bal.set["u2"])

	rec = do(t, h, http.MethodPut, "/v1/balances/u2", `{"coins":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/balances/u2", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/balances/u2/add", `{"delta":5,"multiply":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"uuid":"u2","coins":20}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/v1/balances/u2/add", `{"delta":-100}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 20.0, bal.set["u2"])
}

func TestBalances_RequiresJSON(t *testing.T) {
	h, _, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPut, "/v1/balances/u1", strings.NewReader(`{"coins":1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMultiplier(t *testing.T) {
	h, _, _, lc := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/multipliers", `{"scope":"global","amount":2,"minutes":10,"enable_now":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, lc.created, 1)
	require.Equal(t, types.ScopeGlobal, lc.created[0].Scope)
	require.True(t, lc.created[0].EnableNow)
	require.Contains(t, rec.Body.String(), `"id":7`)

	rec = do(t, h, http.MethodPost, "/v1/multipliers", `{"scope":"everywhere","amount":2,"minutes":10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/multipliers", `{"amount":0,"minutes":10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMultiplierActions(t *testing.T) {
	h, _, _, lc := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/multipliers/1/enable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []types.MultiplierKey{{Origin: "lobby", ID: 1, Scope: types.ScopePerNode}}, lc.enabled)
	require.Contains(t, rec.Body.String(), `"state":"ENABLED"`)

	// id 2 existe en dos nodos: sin ?origin= es el propio
	rec = do(t, h, http.MethodPost, "/v1/multipliers/2/disable", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/multipliers/2/disable?origin=survival", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []types.MultiplierKey{
		{Origin: "lobby", ID: 2, Scope: types.ScopePerNode},
		{Origin: "survival", ID: 2, Scope: types.ScopePerNode},
	}, lc.disabled)

	rec = do(t, h, http.MethodPost, "/v1/multipliers/2/cancel?node=survival", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, lc.cancelled)

	rec = do(t, h, http.MethodPost, "/v1/multipliers/42/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/multipliers/abc/cancel", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMultiplierActions_InvalidTransition(t *testing.T) {
	h, _, _, lc := newTestRouter(t)
	lc.enableErr = fmt.Errorf("%w: ENABLED -> ENABLED", types.ErrInvalidTransition)

	rec := do(t, h, http.MethodPost, "/v1/multipliers/2/enable?origin=survival", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_transition")
}

func TestMultiplierActions_NotFoundFromManager(t *testing.T) {
	h, _, _, lc := newTestRouter(t)
	lc.enableErr = fmt.Errorf("enable multiplier lobby/1/PER_NODE: %w", repository.ErrNotFound)

	rec := do(t, h, http.MethodPost, "/v1/multipliers/1/enable", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
