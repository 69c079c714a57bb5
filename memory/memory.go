// Package memory assembles a complete single-process bus: command, query and
// event routing plus an in-memory outbox that captures relayed integration
// events. It suits tests and small programs that do not need a broker.
package memory

import (
	"github.com/next-trace/scg-message-bus/adapters/inmemory"
	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	"github.com/next-trace/scg-message-bus/servicebus"
)

// Kit holds the registries to fill before building a Bus.
type Kit struct {
	Commands *servicebus.CommandRegistry
	Queries  *servicebus.QueryRegistry
	Events   *servicebus.EventRegistry
	// Outbox receives events forwarded by servicebus.Relay handlers registered with it.
	Outbox *inmemory.Publisher
}

// New returns an empty Kit.
func New(opts ...servicebus.RegistryOption) *Kit {
	return &Kit{
		Commands: servicebus.NewCommandRegistry(opts...),
		Queries:  servicebus.NewQueryRegistry(opts...),
		Events:   servicebus.NewEventRegistry(),
		Outbox:   inmemory.New(),
	}
}

// Bus bundles the three frozen buses. It satisfies cbus.Bus, and the typed
// servicebus.Dispatch, Ask and Publish functions accept its fields.
type Bus struct {
	*servicebus.CommandBus
	*servicebus.QueryBus
	*servicebus.EventBus

	Outbox *inmemory.Publisher
}

var _ cbus.Bus = (*Bus)(nil)

// Build freezes the current registrations. All three buses share opts.
func (k *Kit) Build(opts ...servicebus.BusOption) *Bus {
	return &Bus{
		CommandBus: servicebus.NewCommandBus(k.Commands, opts...),
		QueryBus:   servicebus.NewQueryBus(k.Queries, opts...),
		EventBus:   servicebus.NewEventBus(k.Events, opts...),
		Outbox:     k.Outbox,
	}
}

// Relay forwards every E published on the kit's event bus to its outbox.
func Relay[E cbus.IntegrationEvent](k *Kit, opts cbus.PublishOptions) {
	servicebus.RegisterEvent[E](k.Events, servicebus.Relay[E](k.Outbox, opts))
}
