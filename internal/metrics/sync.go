package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de replicación. Viven en un paquete aparte para que bus,
// replication y multiplier las compartan sin ciclos de import.

const namespace = "coinsync"

// Razones de descarte de mensajes entrantes/salientes.
const (
	DropSelfEcho    = "self_echo"
	DropDecode      = "decode"
	DropUnknownType = "unknown_type"
	DropOutboxFull  = "outbox_full"
)

var (
	MessagesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_published_total",
		Help:      "Envelopes publicados por transporte y tipo",
	}, []string{"transport", "type"})

	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Envelopes decodificados por transporte y tipo",
	}, []string{"transport", "type"})

	MessagesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_dropped_total",
		Help:      "Envelopes descartados por razón",
	}, []string{"reason"})

	PublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_errors_total",
		Help:      "Errores de publish por transporte",
	}, []string{"transport"})

	HandlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_errors_total",
		Help:      "Errores o panics al aplicar un envelope",
	}, []string{"type"})

	ApplyLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "apply_latency_ms",
		Help:      "Latencia de aplicar un envelope entrante en milisegundos",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
	}, []string{"type"})

	OutboxDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_depth",
		Help:      "Envelopes esperando ser publicados",
	})

	InflightSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "inflight_messages",
		Help:      "Tamaño del set de messageIds propios en vuelo",
	})

	MultiplierTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "multiplier_transitions_total",
		Help:      "Transiciones de estado de multipliers originadas en este nodo",
	}, []string{"state"})

	ActiveMultipliers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_multipliers",
		Help:      "Multipliers habilitados en el cache local (todos los nodos)",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		MessagesPublished, MessagesReceived, MessagesDropped, PublishErrors,
		HandlerErrors, ApplyLatency, OutboxDepth, InflightSize,
		MultiplierTransitions, ActiveMultipliers,
	}
}

// Register registra las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
