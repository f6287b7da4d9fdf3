package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// redisBus usa PUBLISH/SUBSCRIBE de Redis sobre un único canal.
type redisBus struct {
	client  *redis.Client
	channel string
	codec   wire.Codec

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedis crea el transporte Redis y verifica la conexión.
func NewRedis(ctx context.Context, channel string, cfg RedisConfig, codec wire.Codec) (MessageBus, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("bus redis: ping failed: %w", err)
	}

	return &redisBus{client: rdb, channel: channel, codec: codec}, nil
}

func (r *redisBus) Name() string { return "redis" }

func (r *redisBus) Start(ctx context.Context, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return ErrAlreadyStarted
	}

	ps := r.client.Subscribe(ctx, r.channel)
	// Receive confirma la suscripción antes de publicar nada
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("bus redis: subscribe %s: %w", r.channel, err)
	}
	r.pubsub = ps
	r.done = make(chan struct{})

	go func(ch <-chan *redis.Message, done chan struct{}) {
		defer close(done)
		for msg := range ch {
			deliver(ctx, r.Name(), r.codec, []byte(msg.Payload), h)
		}
	}(ps.Channel(), r.done)

	logger.From(ctx).Info("redis bus subscribed", logger.Transport(r.Name()), logger.String("channel", r.channel))
	return nil
}

func (r *redisBus) Stop() error {
	r.mu.Lock()
	ps, done := r.pubsub, r.done
	r.pubsub = nil
	r.mu.Unlock()

	var err error
	if ps != nil {
		err = ps.Close()
		<-done
	}
	if cerr := r.client.Close(); cerr != nil && err == nil && cerr != redis.ErrClosed {
		err = cerr
	}
	return err
}

func (r *redisBus) Publish(ctx context.Context, env wire.Envelope) error {
	data, err := encode(r.Name(), r.codec, env)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		metrics.PublishErrors.WithLabelValues(r.Name()).Inc()
		return fmt.Errorf("bus redis: publish: %w", err)
	}
	return nil
}
