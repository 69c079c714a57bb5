/*
Package servicebus routes in-process commands, queries and events to their handlers.

Handlers are registered against the runtime type of the message they accept.
Storage is type-erased (every handler becomes a HandlerFunc); the generic
Register, Dispatch, Ask and Publish functions keep the call sites statically typed.

Commands and queries have exactly one handler per type; registering again
replaces the previous handler. Events have any number of handlers, invoked one
after another in registration order; the first error stops delivery.

Registries are filled at startup and frozen into a bus with NewCommandBus,
NewQueryBus or NewEventBus (or the builders). A bus never changes afterwards
and can be shared between goroutines freely.

	reg := servicebus.NewCommandRegistry()
	servicebus.RegisterCommand[Double, uint32](reg, bus.CommandHandlerFunc[Double, uint32](
	    func(_ context.Context, c Double) (uint32, error) { return c.N * 2, nil },
	))

	cmds := servicebus.NewCommandBus(reg)
	n, err := servicebus.Dispatch[Double, uint32](ctx, cmds, Double{N: 21})
*/
package servicebus
