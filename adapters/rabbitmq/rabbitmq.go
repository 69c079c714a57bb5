package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/next-trace/scg-message-bus/adapters/internal/envelope"
	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// PubMsg is a message ready to be handed to an AMQP channel.
type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

// Publisher sends a single message. The concrete implementations wrap an AMQP
// channel; tests provide fakes.
type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter publishes integration events to an exchange, using the event topic
// as routing key.
type Adapter struct {
	Publisher  Publisher
	Exchange   string
	Propagator cbus.HeaderPropagator // optional, for context propagation into headers
}

var _ cbus.EventPublisher = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp cbus.HeaderPropagator) *Adapter {
	return &Adapter{Publisher: p, Propagator: hp}
}

func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	msg, err := envelope.Build(e, opts)
	if err != nil {
		return fmt.Errorf("rabbitmq publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	return a.publish(ctx, msg)
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq publish: %w", berr.ErrAsyncNotConfigured)
	}

	return nil
}

func (a *Adapter) publish(ctx context.Context, msg envelope.Message) error {
	// Inject tracing context via configured propagator (keeps adapter decoupled)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, msg.Headers)
	}

	m := PubMsg{
		Exchange:   a.Exchange,
		RoutingKey: msg.Topic,
		Body:       msg.Body,
		Headers:    msg.Headers,
	}
	if err := a.Publisher.Publish(ctx, m); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish: %w", errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func toTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}

	h := make(amqp.Table, len(headers))
	for k, v := range headers {
		h[k] = v
	}

	return h
}

func publishing(m PubMsg, mode uint8) amqp.Publishing {
	return amqp.Publishing{
		DeliveryMode: mode,
		Headers:      toTable(m.Headers),
		ContentType:  "application/json",
		MessageId:    m.Headers[cbus.HeaderMessageID],
		Type:         m.Headers[cbus.HeaderMessageType],
		Body:         m.Body,
	}
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m, amqp.Transient))
}

// NewWithAMQPChannel publishes on an already open channel. The caller owns the
// channel and declares the exchange.
func NewWithAMQPChannel(ch *amqp.Channel, exchange string) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}, Exchange: exchange}
}
