package http

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestWithMetrics_LabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metricsHandler, err := RegisterMetrics(reg, reg)
	require.NoError(t, err)

	h := NewRouter(RouterDeps{Node: &fakeNode{name: "lobby", balances: map[string]float64{"u1": 1}}, Metrics: metricsHandler})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/balances/u1", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/balances/u2", "").Code)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `route="/v1/balances/{id}"`)
	require.NotContains(t, body, "u2")
}
