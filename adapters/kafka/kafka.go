package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/next-trace/scg-message-bus/adapters/internal/envelope"
	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// Writer is a minimal Kafka-like writer interface.
// NewWithKgo provides a franz-go backed implementation; tests provide fakes.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter publishes integration events as Kafka records. The partition key is
// the record key; it is not duplicated into the headers.
type Adapter struct {
	Writer Writer
}

var _ cbus.EventPublisher = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka publish: %w", berr.ErrAsyncNotConfigured)
	}

	val, err := envelope.Encode(e)
	if err != nil {
		return fmt.Errorf("kafka publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	topic := envelope.Topic(e, opts)
	headers := envelope.Headers(opts, "")

	var key []byte
	if k := envelope.Key(val, opts); k != "" {
		key = []byte(k)
	}

	if err = a.Writer.Write(ctx, topic, key, val, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish write to %q: %w", topic, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}
