// Package inmemory provides a recording EventPublisher for tests, examples and
// single-process deployments that want to observe relayed events.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/next-trace/scg-message-bus/adapters/internal/envelope"
	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// Message is one recorded publication.
type Message struct {
	Topic   string
	Key     string
	Headers map[string]string
	Body    []byte
	Event   cbus.IntegrationEvent
}

// Publisher is a thread-safe in-memory implementation of cbus.EventPublisher.
// It encodes every event the same way the broker adapters do and keeps the result.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
}

var _ cbus.EventPublisher = (*Publisher)(nil)

// New creates an empty publisher.
func New() *Publisher { return &Publisher{} }

func (p *Publisher) PublishIntegration(ctx context.Context, e cbus.IntegrationEvent, opts cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := envelope.Build(e, opts)
	if err != nil {
		return fmt.Errorf("inmemory publish serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	p.mu.Lock()
	p.messages = append(p.messages, Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Headers: msg.Headers,
		Body:    msg.Body,
		Event:   e,
	})
	p.mu.Unlock()

	return nil
}

// Messages returns a copy of everything published so far, oldest first.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.messages)
}

// Topic returns the messages published to topic.
func (p *Publisher) Topic(topic string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Message

	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}

	return out
}

// Reset drops all recorded messages.
func (p *Publisher) Reset() {
	p.mu.Lock()
	p.messages = nil
	p.mu.Unlock()
}
