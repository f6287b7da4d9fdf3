// Package bus provee el transporte pub/sub sobre el que viajan los envelopes.
//
// Soporta:
//   - none (sin replicación, nodo standalone)
//   - memory (hub in-process, para desarrollo/testing)
//   - redis (pub/sub de Redis sobre un canal)
//   - relay (ZeroMQ PUB/SUB contra un forwarder XSUB/XPUB)
//
// El transporte no filtra el eco propio: cada suscriptor recibe también lo
// que publicó. La supresión vive en replication.
package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// Handler recibe cada envelope decodificado. Se invoca desde la goroutine
// del transporte; no debe bloquear indefinidamente.
type Handler func(ctx context.Context, env wire.Envelope)

// MessageBus es un canal broadcast best-effort (at-most-once).
type MessageBus interface {
	// Name retorna el nombre del transporte ("none", "memory", "redis", "relay").
	Name() string

	// Start suscribe el handler. Se llama una sola vez.
	Start(ctx context.Context, h Handler) error

	// Stop corta la suscripción y libera recursos. Idempotente.
	Stop() error

	// Publish envía el envelope a todos los suscriptores, incluido este nodo.
	Publish(ctx context.Context, env wire.Envelope) error
}

// Config configuración del transporte.
type Config struct {
	Kind    string // "none" | "memory" | "redis" | "relay"
	Channel string // canal Redis / tópico ZeroMQ
	Redis   RedisConfig
	Relay   RelayConfig
}

// RedisConfig parámetros del cliente go-redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RelayConfig direcciones del forwarder ZeroMQ.
type RelayConfig struct {
	PubAddr string // XSUB del forwarder (connect)
	SubAddr string // XPUB del forwarder (connect)
}

// DefaultChannel es el canal usado si la config no define uno.
const DefaultChannel = "coinsync"

// Errores del bus.
var (
	ErrNotStarted     = errors.New("bus: not started")
	ErrAlreadyStarted = errors.New("bus: already started")
	ErrUnknownKind    = errors.New("bus: unknown kind")
)

// New construye el transporte indicado por cfg.Kind. Para "memory" se usa
// DefaultHub, compartido por todo el proceso.
func New(ctx context.Context, cfg Config, codec wire.Codec) (MessageBus, error) {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "none":
		return NewNone(), nil
	case "memory":
		return NewMemory(DefaultHub, codec), nil
	case "redis":
		return NewRedis(ctx, cfg.Channel, cfg.Redis, codec)
	case "relay":
		return NewRelay(cfg.Channel, cfg.Relay, codec)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
}

// deliver decodifica y entrega un payload crudo. Los errores de decode se
// registran y se descartan: un mensaje roto no corta la suscripción.
func deliver(ctx context.Context, transport string, codec wire.Codec, data []byte, h Handler) {
	env, err := codec.Decode(data)
	if err != nil {
		log := logger.From(ctx).With(logger.Transport(transport))
		if errors.Is(err, wire.ErrUnknownType) {
			metrics.MessagesDropped.WithLabelValues(metrics.DropUnknownType).Inc()
			log.Debug("ignoring unknown message type", logger.Err(err))
			return
		}
		metrics.MessagesDropped.WithLabelValues(metrics.DropDecode).Inc()
		log.Warn("dropping undecodable message", logger.Err(err), zap.Int("bytes", len(data)))
		return
	}
	metrics.MessagesReceived.WithLabelValues(transport, string(env.Type())).Inc()
	h(ctx, env)
}

// encode serializa y cuenta el publish.
func encode(transport string, codec wire.Codec, env wire.Envelope) ([]byte, error) {
	data, err := codec.Encode(env)
	if err != nil {
		metrics.PublishErrors.WithLabelValues(transport).Inc()
		return nil, fmt.Errorf("bus %s: encode: %w", transport, err)
	}
	metrics.MessagesPublished.WithLabelValues(transport, string(env.Type())).Inc()
	return data, nil
}
