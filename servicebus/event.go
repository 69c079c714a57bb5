package servicebus

import (
	"context"
	"reflect"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
)

// EventBus delivers each event to every handler registered for its type, one
// after another in registration order. It is immutable once built and safe for
// concurrent use.
type EventBus struct {
	entries map[reflect.Type]eventEntry
	cfg     config
}

var _ cbus.EventDispatcher = (*EventBus)(nil)

// NewEventBus freezes the handlers of reg into a bus.
func NewEventBus(reg *EventRegistry, opts ...BusOption) *EventBus {
	cfg := newConfig(opts)

	entries := reg.snapshot()
	for t, e := range entries {
		for i, h := range e.handlers {
			e.handlers[i] = cfg.wrap(h)
		}

		entries[t] = e
	}

	return &EventBus{entries: entries, cfg: cfg}
}

// Publish delivers e to the handlers registered for its concrete type, which is
// E unless E is an interface. Each handler receives
// its own copy of e. The first handler error stops delivery and is returned
// unchanged; handlers after it are not called. Publishing an event nobody
// listens to succeeds.
func Publish[E cbus.Event](ctx context.Context, b *EventBus, e E) error {
	return b.publish(ctx, routeOf(e), e)
}

// PublishAny delivers an event whose type is only known at runtime.
func (b *EventBus) PublishAny(ctx context.Context, e any) error {
	return b.publish(ctx, reflect.TypeOf(e), e)
}

func (b *EventBus) publish(ctx context.Context, t reflect.Type, e any) error {
	entry, ok := b.entries[t]
	if !ok {
		return nil
	}

	for _, h := range entry.handlers {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := h(ctx, entry.dup(e)); err != nil {
			return err
		}
	}

	return nil
}

// HandlerCount returns the number of handlers the bus delivers E to.
func HandlerCount[E cbus.Event](b *EventBus) int {
	return len(b.entries[reflect.TypeFor[E]()].handlers)
}
