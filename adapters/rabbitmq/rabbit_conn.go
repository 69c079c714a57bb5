package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// Concrete AMQP connection-backed constructor and publisher wrapper with auto-reconnect.

const (
	// IntegrationExchange is the default topic exchange events are relayed to.
	IntegrationExchange   = "integration"
	integrationExchangeTy = "topic"

	maxBackoff = 30 * time.Second
)

// Config describes a reconnecting AMQP publisher.
type Config struct {
	URL         string
	ConnTimeout time.Duration
	// Exchange defaults to IntegrationExchange. It is declared as a durable topic exchange.
	Exchange string
	Logger   *slog.Logger
}

type reconnectingPublisher struct {
	cfg    Config
	log    *slog.Logger
	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan struct{}
	ready  chan struct{} // closed while a channel is usable
}

func newReconnectingPublisher(cfg Config) (*reconnectingPublisher, func()) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	rp := &reconnectingPublisher{
		cfg:    cfg,
		log:    log,
		closed: make(chan struct{}),
		ready:  make(chan struct{}),
	}
	go rp.run()

	return rp, rp.close
}

func (rp *reconnectingPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	rp.mu.RLock()
	ch, ready := rp.ch, rp.ready
	rp.mu.RUnlock()

	if ch != nil {
		return ch, nil
	}

	select {
	case <-ready:
	case <-rp.closed:
		return nil, fmt.Errorf("%w: rabbitmq publisher closed", berr.ErrPublishFailed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rp.mu.RLock()
	ch = rp.ch
	rp.mu.RUnlock()

	if ch == nil {
		return nil, fmt.Errorf("%w: rabbitmq not connected", berr.ErrPublishFailed)
	}

	return ch, nil
}

func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	ch, err := rp.channel(ctx)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Persistent))
}

func (rp *reconnectingPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(rp.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-message-bus"},
		Dial:       amqp.DefaultDial(rp.cfg.ConnTimeout),
	})
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	if err := ch.ExchangeDeclare(rp.cfg.Exchange, integrationExchangeTy, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, nil, err
	}

	return conn, ch, nil
}

func (rp *reconnectingPublisher) run() {
	backoff := time.Second
	// #nosec G404 -- non-crypto RNG is acceptable for backoff jitter
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // non-crypto RNG is acceptable for backoff jitter

	for {
		select {
		case <-rp.closed:
			return
		default:
		}

		conn, ch, err := rp.dial()
		if err != nil {
			sleep := min(backoff+time.Duration(rng.Int63n(int64(backoff/2))), maxBackoff)
			rp.log.Warn("rabbitmq: connect failed", "error", err, "retry_in", sleep)

			t := time.NewTimer(sleep)
			select {
			case <-rp.closed:
				t.Stop()
				return
			case <-t.C:
			}

			backoff = min(backoff*2, maxBackoff)

			continue
		}

		backoff = time.Second
		notify := conn.NotifyClose(make(chan *amqp.Error, 1))

		rp.mu.Lock()
		rp.conn, rp.ch = conn, ch
		close(rp.ready)
		rp.mu.Unlock()

		rp.log.Info("rabbitmq: connected", "exchange", rp.cfg.Exchange)

		select {
		case <-rp.closed:
			_ = ch.Close()
			_ = conn.Close()

			return
		case amqpErr := <-notify:
			rp.log.Warn("rabbitmq: connection lost", "error", amqpErr)

			rp.mu.Lock()
			rp.conn, rp.ch = nil, nil
			rp.ready = make(chan struct{})
			rp.mu.Unlock()

			_ = ch.Close()
			_ = conn.Close()
		}
	}
}

func (rp *reconnectingPublisher) close() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	select {
	case <-rp.closed:
		return
	default:
		close(rp.closed)
	}

	if rp.ch != nil {
		_ = rp.ch.Close()
		rp.ch = nil
	}

	if rp.conn != nil {
		_ = rp.conn.Close()
		rp.conn = nil
	}
}

// NewWithAMQPConn dials RabbitMQ in the background with auto-reconnect, declares
// the exchange, and returns an Adapter publishing to it plus a cleanup.
// Publishing blocks until the first connection is up or ctx is done.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrAsyncNotConfigured)
	}

	if cfg.Exchange == "" {
		cfg.Exchange = IntegrationExchange
	}

	pub, cleanup := newReconnectingPublisher(cfg)
	ad := New(pub)
	ad.Exchange = cfg.Exchange

	return ad, cleanup, nil
}
