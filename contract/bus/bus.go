package bus

import "context"

// The interfaces below are the non-generic faces of the concrete buses in the
// servicebus package. Depend on them where the message type is only known at
// runtime, e.g. a command handler that publishes the events it produced.

// CommandDispatcher routes a command to its single handler.
type CommandDispatcher interface {
	DispatchAny(ctx context.Context, cmd any) (any, error)
}

// QueryAsker routes a query to its single handler.
type QueryAsker interface {
	AskAny(ctx context.Context, query any) (any, error)
}

// EventDispatcher delivers an event to every handler registered for its type.
type EventDispatcher interface {
	PublishAny(ctx context.Context, event any) error
}

// Bus is the combined runtime-typed face of all three buses.
type Bus interface {
	CommandDispatcher
	QueryAsker
	EventDispatcher
}
