package servicebus

import (
	"fmt"
	"log/slog"
	"reflect"

	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

const (
	kindCommand = "command"
	kindQuery   = "query"
	kindEvent   = "event"
)

// BusOption configures a CommandBus, QueryBus or EventBus.
type BusOption func(*config)

type config struct {
	logger     *slog.Logger
	middleware []Middleware
	strict     bool
}

func newConfig(opts []BusOption) config {
	c := config{logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(&c)
	}

	return c
}

// WithLogger sets the logger used for routing diagnostics. Dispatch itself is
// only logged when the Logging middleware is installed.
func WithLogger(l *slog.Logger) BusOption {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMiddleware wraps every handler of the bus. Middlewares are executed in
// registration order: the first one registered is the outermost.
func WithMiddleware(mw ...Middleware) BusOption {
	return func(c *config) { c.middleware = append(c.middleware, mw...) }
}

// WithStrictRouting makes Dispatch and Ask panic instead of returning
// ErrHandlerNotFound when no handler is registered for a type. Use it when a
// missing handler can only be a wiring mistake.
func WithStrictRouting() BusOption {
	return func(c *config) { c.strict = true }
}

// wrap applies the configured middleware to h so the first registered
// middleware runs first.
func (c config) wrap(h HandlerFunc) HandlerFunc {
	for i := len(c.middleware) - 1; i >= 0; i-- {
		h = c.middleware[i](h)
	}

	return h
}

// notFound builds the routing error for a missing command or query handler,
// or panics with it under strict routing.
func (c config) notFound(op, kind string, t reflect.Type) error {
	err := fmt.Errorf("%s %s: %w", op, typeName(t), berr.ErrHandlerNotFound)
	c.logger.Warn("servicebus: no handler registered", "kind", kind, "type", typeName(t))

	if c.strict {
		panic(err)
	}

	return err
}

// routeOf returns the routing key of msg. A static type parameter that is an
// interface says nothing about the handler, so the dynamic type is used.
func routeOf[T any](msg T) reflect.Type {
	if t := reflect.TypeFor[T](); t.Kind() != reflect.Interface {
		return t
	}

	return reflect.TypeOf(any(msg))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}
