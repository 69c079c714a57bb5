package servicebus

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
)

// RegistryOption configures a registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	logger *slog.Logger
}

// WithRegistryLogger makes the registry report handler overwrites at debug level.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(c *registryConfig) { c.logger = l }
}

func newRegistryConfig(opts []RegistryOption) registryConfig {
	var c registryConfig
	for _, o := range opts {
		o(&c)
	}

	return c
}

// slotRegistry maps a message type to exactly one erased handler.
// It is not safe for concurrent registration; registries are filled during
// startup and then frozen into a bus.
type slotRegistry struct {
	kind     string
	handlers map[reflect.Type]HandlerFunc
	logger   *slog.Logger
}

func (r *slotRegistry) set(t reflect.Type, h HandlerFunc) {
	if r.handlers == nil {
		r.handlers = make(map[reflect.Type]HandlerFunc)
	}

	if _, exists := r.handlers[t]; exists && r.logger != nil {
		r.logger.Debug("servicebus: replacing handler", "kind", r.kind, "type", typeName(t))
	}

	r.handlers[t] = h
}

// messageType is the routing key for registrations of T. Interface types are
// rejected: dispatch routes on the concrete type a message carries, so a handler
// keyed by an interface could never be reached.
func messageType[T any](kind string) reflect.Type {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		panic(fmt.Sprintf("servicebus: register %s %s: interface types cannot be routed, register the concrete type", kind, typeName(t)))
	}

	return t
}

func (r *slotRegistry) get(t reflect.Type) (HandlerFunc, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Len returns the number of message types with a handler.
func (r *slotRegistry) Len() int { return len(r.handlers) }

// Types returns the names of the registered message types, sorted.
func (r *slotRegistry) Types() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, typeName(t))
	}

	slices.Sort(out)

	return out
}

func (r *slotRegistry) String() string {
	return fmt.Sprintf("%s registry [%s]", r.kind, strings.Join(r.Types(), ", "))
}

// CommandRegistry holds one handler per command type. The zero value is ready
// to use.
type CommandRegistry struct{ slotRegistry }

// NewCommandRegistry returns an empty command registry.
func NewCommandRegistry(opts ...RegistryOption) *CommandRegistry {
	c := newRegistryConfig(opts)
	return &CommandRegistry{slotRegistry{kind: kindCommand, logger: c.logger}}
}

// QueryRegistry holds one handler per query type. The zero value is ready to use.
type QueryRegistry struct{ slotRegistry }

// NewQueryRegistry returns an empty query registry.
func NewQueryRegistry(opts ...RegistryOption) *QueryRegistry {
	c := newRegistryConfig(opts)
	return &QueryRegistry{slotRegistry{kind: kindQuery, logger: c.logger}}
}

// RegisterCommand stores h as the handler for command type C. A handler
// already registered for C is replaced.
func RegisterCommand[C cbus.Command[R], R any](reg *CommandRegistry, h cbus.CommandHandler[C, R]) {
	if reg.kind == "" {
		reg.kind = kindCommand
	}

	reg.set(messageType[C](kindCommand), eraseCommand[C, R](h))
}

// LookupCommand returns the handler registered for C, if any.
func LookupCommand[C cbus.Command[R], R any](reg *CommandRegistry) (cbus.CommandHandler[C, R], bool) {
	h, ok := reg.get(reflect.TypeFor[C]())
	if !ok {
		return nil, false
	}

	return commandView[C, R]{call: h}, true
}

// RegisterQuery stores h as the handler for query type Q. A handler already
// registered for Q is replaced.
func RegisterQuery[Q cbus.Query[R], R any](reg *QueryRegistry, h cbus.QueryHandler[Q, R]) {
	if reg.kind == "" {
		reg.kind = kindQuery
	}

	reg.set(messageType[Q](kindQuery), eraseQuery[Q, R](h))
}

// LookupQuery returns the handler registered for Q, if any.
func LookupQuery[Q cbus.Query[R], R any](reg *QueryRegistry) (cbus.QueryHandler[Q, R], bool) {
	h, ok := reg.get(reflect.TypeFor[Q]())
	if !ok {
		return nil, false
	}

	return queryView[Q, R]{call: h}, true
}

// eventEntry is the ordered handler list of one event type together with the
// function that duplicates an event of that type for each handler.
type eventEntry struct {
	dup      func(any) any
	handlers []HandlerFunc
}

// EventRegistry holds an ordered list of handlers per event type. The zero
// value is ready to use.
type EventRegistry struct {
	entries map[reflect.Type]eventEntry
}

// NewEventRegistry returns an empty event registry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{entries: make(map[reflect.Type]eventEntry)}
}

// RegisterEvent appends h to the handlers of event type E. Handlers run in the
// order they were registered.
//
// E must be a concrete type. Pointer, map and slice events are shared by
// reference, so they must implement cbus.Cloner[E]; RegisterEvent panics
// otherwise.
func RegisterEvent[E cbus.Event](reg *EventRegistry, h cbus.EventHandler[E]) {
	if reg.entries == nil {
		reg.entries = make(map[reflect.Type]eventEntry)
	}

	t := messageType[E](kindEvent)

	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if !t.Implements(reflect.TypeFor[cbus.Cloner[E]]()) {
			panic(fmt.Sprintf("servicebus: register event %s: reference-typed events must implement bus.Cloner", typeName(t)))
		}
	}

	e := reg.entries[t]
	e.dup = duplicate[E]
	e.handlers = append(e.handlers, eraseEvent[E](h))
	reg.entries[t] = e
}

// LookupEvents returns the handlers of event type E in registration order.
// The result is empty when none are registered.
func LookupEvents[E cbus.Event](reg *EventRegistry) []cbus.EventHandler[E] {
	e := reg.entries[reflect.TypeFor[E]()]

	out := make([]cbus.EventHandler[E], 0, len(e.handlers))
	for _, h := range e.handlers {
		out = append(out, eventView[E]{call: h})
	}

	return out
}

// Len returns the number of event types with at least one handler.
func (r *EventRegistry) Len() int { return len(r.entries) }

// Types returns the names of the registered event types, sorted.
func (r *EventRegistry) Types() []string {
	out := make([]string, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, typeName(t))
	}

	slices.Sort(out)

	return out
}

func (r *EventRegistry) String() string {
	parts := make([]string, 0, len(r.entries))
	for t, e := range r.entries {
		parts = append(parts, fmt.Sprintf("%s(%d)", typeName(t), len(e.handlers)))
	}

	slices.Sort(parts)

	return fmt.Sprintf("%s registry [%s]", kindEvent, strings.Join(parts, ", "))
}

// snapshot returns a copy of the table that later registrations cannot reach.
func (r *EventRegistry) snapshot() map[reflect.Type]eventEntry {
	out := make(map[reflect.Type]eventEntry, len(r.entries))
	for t, e := range r.entries {
		out[t] = eventEntry{dup: e.dup, handlers: slices.Clone(e.handlers)}
	}

	return out
}
