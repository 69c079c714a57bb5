package servicebus

import cbus "github.com/next-trace/scg-message-bus/contract/bus"

// Binding registers one handler on a registry of type Reg.
type Binding[Reg any] func(*Reg)

// Builder collects handler bindings and builds a frozen bus from them.
//
//	cmds := servicebus.NewCommandBuilder(servicebus.WithMiddleware(servicebus.Recover())).
//	    WithHandler(
//	        servicebus.BindCommand[AddProduct, uint64](addProduct),
//	        servicebus.BindCommand[RenameProduct, struct{}](renameProduct),
//	    ).
//	    Build()
type Builder[Reg, Bus any] struct {
	reg   *Reg
	build func(*Reg, ...BusOption) *Bus
	opts  []BusOption
}

// WithHandler applies the bindings in order. Later bindings for the same
// command or query type replace earlier ones; event bindings accumulate.
func (b *Builder[Reg, Bus]) WithHandler(bindings ...Binding[Reg]) *Builder[Reg, Bus] {
	for _, bind := range bindings {
		bind(b.reg)
	}

	return b
}

// Registry exposes the registry being filled, e.g. for introspection.
func (b *Builder[Reg, Bus]) Registry() *Reg { return b.reg }

// Build freezes the current registrations into a bus. The builder stays usable;
// later bindings do not reach buses built earlier.
func (b *Builder[Reg, Bus]) Build() *Bus { return b.build(b.reg, b.opts...) }

// NewCommandBuilder starts a CommandBus.
func NewCommandBuilder(opts ...BusOption) *Builder[CommandRegistry, CommandBus] {
	return &Builder[CommandRegistry, CommandBus]{reg: NewCommandRegistry(), build: NewCommandBus, opts: opts}
}

// NewQueryBuilder starts a QueryBus.
func NewQueryBuilder(opts ...BusOption) *Builder[QueryRegistry, QueryBus] {
	return &Builder[QueryRegistry, QueryBus]{reg: NewQueryRegistry(), build: NewQueryBus, opts: opts}
}

// NewEventBuilder starts an EventBus.
func NewEventBuilder(opts ...BusOption) *Builder[EventRegistry, EventBus] {
	return &Builder[EventRegistry, EventBus]{reg: NewEventRegistry(), build: NewEventBus, opts: opts}
}

// BindCommand binds h as the handler of command type C.
func BindCommand[C cbus.Command[R], R any](h cbus.CommandHandler[C, R]) Binding[CommandRegistry] {
	return func(reg *CommandRegistry) { RegisterCommand[C, R](reg, h) }
}

// BindQuery binds h as the handler of query type Q.
func BindQuery[Q cbus.Query[R], R any](h cbus.QueryHandler[Q, R]) Binding[QueryRegistry] {
	return func(reg *QueryRegistry) { RegisterQuery[Q, R](reg, h) }
}

// BindEvent appends h to the handlers of event type E.
func BindEvent[E cbus.Event](h cbus.EventHandler[E]) Binding[EventRegistry] {
	return func(reg *EventRegistry) { RegisterEvent[E](reg, h) }
}
