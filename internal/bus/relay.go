package bus

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"

	"github.com/dropDatabas3/coinsync/internal/metrics"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// recvTimeout acota cada RecvMessageBytes para poder chequear Stop.
const recvTimeout = 250 * time.Millisecond

// relayBus publica en el XSUB de un forwarder y se suscribe a su XPUB.
// Mensajes multipart: [tópico, payload].
type relayBus struct {
	cfg   RelayConfig
	topic string
	codec wire.Codec

	zctx *zmq.Context

	pubMu sync.Mutex // los sockets ZeroMQ no son thread-safe
	pub   *zmq.Socket

	mu   sync.Mutex
	sub  *zmq.Socket
	stop chan struct{}
	done chan struct{}
}

// NewRelay conecta el socket PUB. El SUB se conecta en Start.
func NewRelay(topic string, cfg RelayConfig, codec wire.Codec) (MessageBus, error) {
	if cfg.PubAddr == "" || cfg.SubAddr == "" {
		return nil, fmt.Errorf("bus relay: pub_addr and sub_addr are required")
	}
	zctx, err := zmq.NewContext()
	if err != nil {
		return nil, fmt.Errorf("bus relay: context: %w", err)
	}
	pub, err := zctx.NewSocket(zmq.PUB)
	if err != nil {
		_ = zctx.Term()
		return nil, fmt.Errorf("bus relay: pub socket: %w", err)
	}
	_ = pub.SetLinger(0)
	if err := pub.Connect(cfg.PubAddr); err != nil {
		_ = pub.Close()
		_ = zctx.Term()
		return nil, fmt.Errorf("bus relay: connect %s: %w", cfg.PubAddr, err)
	}
	return &relayBus{cfg: cfg, topic: topic, codec: codec, zctx: zctx, pub: pub}, nil
}

func (r *relayBus) Name() string { return "relay" }

func (r *relayBus) Start(ctx context.Context, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return ErrAlreadyStarted
	}

	sub, err := r.zctx.NewSocket(zmq.SUB)
	if err != nil {
		return fmt.Errorf("bus relay: sub socket: %w", err)
	}
	_ = sub.SetLinger(0)
	if err := sub.SetRcvtimeo(recvTimeout); err != nil {
		_ = sub.Close()
		return fmt.Errorf("bus relay: rcvtimeo: %w", err)
	}
	if err := sub.Connect(r.cfg.SubAddr); err != nil {
		_ = sub.Close()
		return fmt.Errorf("bus relay: connect %s: %w", r.cfg.SubAddr, err)
	}
	if err := sub.SetSubscribe(r.topic); err != nil {
		_ = sub.Close()
		return fmt.Errorf("bus relay: subscribe %s: %w", r.topic, err)
	}

	r.sub = sub
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.recvLoop(ctx, sub, h, r.stop, r.done)

	logger.From(ctx).Info("relay bus subscribed",
		logger.Transport(r.Name()), logger.String("sub_addr", r.cfg.SubAddr), logger.String("topic", r.topic))
	return nil
}

// recvLoop es el único dueño del socket SUB.
func (r *relayBus) recvLoop(ctx context.Context, sub *zmq.Socket, h Handler, stop, done chan struct{}) {
	defer close(done)
	defer sub.Close()
	log := logger.From(ctx).With(logger.Transport(r.Name()))

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		parts, err := sub.RecvMessageBytes(0)
		if err != nil {
			if zmq.AsErrno(err) != zmq.Errno(syscall.EAGAIN) {
				log.Warn("relay recv failed", logger.Err(err))
			}
			continue
		}
		if len(parts) < 2 {
			metrics.MessagesDropped.WithLabelValues(metrics.DropDecode).Inc()
			log.Warn("relay frame without payload", logger.Count(len(parts)))
			continue
		}
		if string(parts[0]) != r.topic {
			continue
		}
		deliver(ctx, r.Name(), r.codec, parts[1], h)
	}
}

func (r *relayBus) Stop() error {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done, r.sub = nil, nil, nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	if r.pub == nil {
		return nil
	}
	err := r.pub.Close()
	r.pub = nil
	if terr := r.zctx.Term(); terr != nil && err == nil {
		err = terr
	}
	return err
}

func (r *relayBus) Publish(_ context.Context, env wire.Envelope) error {
	data, err := encode(r.Name(), r.codec, env)
	if err != nil {
		return err
	}
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	if r.pub == nil {
		return ErrNotStarted
	}
	if _, err := r.pub.SendMessage(r.topic, data); err != nil {
		metrics.PublishErrors.WithLabelValues(r.Name()).Inc()
		return fmt.Errorf("bus relay: send: %w", err)
	}
	return nil
}

// ─── Forwarder ───

// RunProxy levanta el forwarder XSUB(in) → XPUB(out) y bloquea hasta que ctx
// se cancela. Los nodos publican en in y se suscriben en out.
func RunProxy(ctx context.Context, in, out string) error {
	log := logger.From(ctx).With(logger.Component("relay"))

	zctx, err := zmq.NewContext()
	if err != nil {
		return fmt.Errorf("relay: context: %w", err)
	}
	defer zctx.Term()

	xsub, err := zctx.NewSocket(zmq.XSUB)
	if err != nil {
		return fmt.Errorf("relay: xsub: %w", err)
	}
	defer xsub.Close()
	if err := xsub.Bind(in); err != nil {
		return fmt.Errorf("relay: bind xsub %s: %w", in, err)
	}

	xpub, err := zctx.NewSocket(zmq.XPUB)
	if err != nil {
		return fmt.Errorf("relay: xpub: %w", err)
	}
	defer xpub.Close()
	if err := xpub.Bind(out); err != nil {
		return fmt.Errorf("relay: bind xpub %s: %w", out, err)
	}

	ctlAddr := "inproc://relay-ctl-" + uuid.NewString()
	control, err := zctx.NewSocket(zmq.PAIR)
	if err != nil {
		return fmt.Errorf("relay: control: %w", err)
	}
	defer control.Close()
	if err := control.Bind(ctlAddr); err != nil {
		return fmt.Errorf("relay: bind control: %w", err)
	}

	stopper, err := zctx.NewSocket(zmq.PAIR)
	if err != nil {
		return fmt.Errorf("relay: stopper: %w", err)
	}
	if err := stopper.Connect(ctlAddr); err != nil {
		_ = stopper.Close()
		return fmt.Errorf("relay: connect control: %w", err)
	}

	go func() {
		defer stopper.Close()
		<-ctx.Done()
		if _, err := stopper.Send("TERMINATE", 0); err != nil {
			log.Warn("relay stop signal failed", logger.Err(err))
		}
	}()

	log.Info("relay forwarding", logger.String("in", in), logger.String("out", out))
	if err := zmq.ProxySteerable(xsub, xpub, nil, control); err != nil {
		return fmt.Errorf("relay: proxy: %w", err)
	}
	log.Info("relay stopped")
	return nil
}
