package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouterDeps agrupa lo que expone la API de administración.
type RouterDeps struct {
	Node        NodeState
	Balances    BalanceWriter
	Multipliers MultiplierLifecycle
	Ready       func(r *http.Request) error
	Metrics     http.Handler // nil = sin /metrics
	Log         *zap.Logger
}

// NewRouter arma el router chi de administración.
func NewRouter(d RouterDeps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	h := &handlers{deps: d}

	r := chi.NewRouter()
	r.Use(WithRequestID)
	r.Use(WithRecover(d.Log))
	r.Use(WithLogging(d.Log))
	r.Use(WithMetrics)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", h.state)

		r.Route("/balances/{id}", func(r chi.Router) {
			r.Get("/", h.getBalance)
			r.Put("/", h.setBalance)
			r.Post("/add", h.addBalance)
		})

		r.Post("/multipliers", h.createMultiplier)
		r.Route("/multipliers/{id}", func(r chi.Router) {
			r.Post("/enable", h.enableMultiplier)
			r.Post("/disable", h.disableMultiplier)
			r.Post("/cancel", h.cancelMultiplier)
		})
	})
	return r
}
