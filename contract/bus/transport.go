package bus

import "context"

// EventPublisher is the outbound edge of the bus: servicebus.Relay hands
// integration events to it, and the adapters package ships one per broker.
// Implementations are called from concurrent publishes.
type EventPublisher interface {
	PublishIntegration(ctx context.Context, evt IntegrationEvent, opts PublishOptions) error
}

// HeaderPropagator writes trace context from ctx into outgoing broker headers.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

// NopHeaderPropagator leaves headers untouched.
type NopHeaderPropagator struct{}

func (NopHeaderPropagator) Inject(context.Context, map[string]string) {}
