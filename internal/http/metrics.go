package http

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

// RegisterMetrics inicializa las métricas HTTP y devuelve el handler de
// /metrics para reg (o el default si es nil).
func RegisterMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})
	})
	for _, c := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), nil
}

// WithMetrics instrumenta requests con el patrón de ruta de chi como label,
// así los ids no explotan la cardinalidad.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		method := strings.ToUpper(r.Method)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	})
}

// registerCollector registra el collector, ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
