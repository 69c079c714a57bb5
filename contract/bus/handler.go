package bus

import "context"

// CommandHandler handles commands of type C and returns a response of type R.
// Implementations must be safe for concurrent use by multiple goroutines.
type CommandHandler[C Command[R], R any] interface {
	Handle(ctx context.Context, c C) (R, error)
}

// QueryHandler handles queries of type Q and returns a result of type R.
// Implementations must be safe for concurrent use by multiple goroutines.
type QueryHandler[Q Query[R], R any] interface {
	Handle(ctx context.Context, q Q) (R, error)
}

// EventHandler reacts to events of type E.
// Returning an error stops delivery to the handlers registered after it.
type EventHandler[E Event] interface {
	Handle(ctx context.Context, e E) error
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc[C Command[R], R any] func(ctx context.Context, c C) (R, error)

// Handle calls f(ctx, c).
func (f CommandHandlerFunc[C, R]) Handle(ctx context.Context, c C) (R, error) { return f(ctx, c) }

// QueryHandlerFunc adapts a function to QueryHandler.
type QueryHandlerFunc[Q Query[R], R any] func(ctx context.Context, q Q) (R, error)

// Handle calls f(ctx, q).
func (f QueryHandlerFunc[Q, R]) Handle(ctx context.Context, q Q) (R, error) { return f(ctx, q) }

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[E Event] func(ctx context.Context, e E) error

// Handle calls f(ctx, e).
func (f EventHandlerFunc[E]) Handle(ctx context.Context, e E) error { return f(ctx, e) }
