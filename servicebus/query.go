package servicebus

import (
	"context"
	"maps"
	"reflect"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
)

// QueryBus routes each query to the single handler registered for its type.
// It is immutable once built and safe for concurrent use.
type QueryBus struct {
	handlers map[reflect.Type]HandlerFunc
	cfg      config
}

var _ cbus.QueryAsker = (*QueryBus)(nil)

// NewQueryBus freezes the handlers of reg into a bus.
func NewQueryBus(reg *QueryRegistry, opts ...BusOption) *QueryBus {
	cfg := newConfig(opts)

	handlers := maps.Clone(reg.handlers)
	if handlers == nil {
		handlers = make(map[reflect.Type]HandlerFunc)
	}

	for t, h := range handlers {
		handlers[t] = cfg.wrap(h)
	}

	return &QueryBus{handlers: handlers, cfg: cfg}
}

// Ask runs the handler registered for Q and returns its result unchanged.
func Ask[Q cbus.Query[R], R any](ctx context.Context, b *QueryBus, q Q) (R, error) {
	out, err := b.ask(ctx, routeOf(q), q)
	if err != nil {
		var zero R
		return zero, err
	}

	return unerase[R](out), nil
}

// AskAny routes a query whose type is only known at runtime.
func (b *QueryBus) AskAny(ctx context.Context, q any) (any, error) {
	return b.ask(ctx, reflect.TypeOf(q), q)
}

func (b *QueryBus) ask(ctx context.Context, t reflect.Type, q any) (any, error) {
	h, ok := b.handlers[t]
	if !ok {
		return nil, b.cfg.notFound("ask", kindQuery, t)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return h(ctx, q)
}
