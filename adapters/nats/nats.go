package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/next-trace/scg-message-bus/adapters/internal/envelope"
	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
}

// Adapter publishes integration events on NATS subjects. The subject is the
// event topic; the partition key, if any, travels in the "key" header.
type Adapter struct {
	Client Client
	// SubjectPrefix is prepended to every subject, e.g. "events.".
	SubjectPrefix string
}

var _ cbus.EventPublisher = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := a.ready(ctx); err != nil {
		return err
	}

	msg, err := envelope.Build(e, opts)
	if err != nil {
		return fmt.Errorf("nats publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := a.Client.Publish(a.SubjectPrefix+msg.Topic, msg.Body, msg.Headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats publish: %w", errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}

func (a *Adapter) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats publish: %w", berr.ErrAsyncNotConfigured)
	}

	return nil
}
