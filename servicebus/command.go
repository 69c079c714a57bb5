package servicebus

import (
	"context"
	"errors"
	"maps"
	"reflect"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
)

// CommandBus routes each command to the single handler registered for its
// type. A CommandBus is immutable once built and safe for concurrent use;
// share it by copying the pointer.
type CommandBus struct {
	handlers map[reflect.Type]HandlerFunc
	cfg      config
}

var _ cbus.CommandDispatcher = (*CommandBus)(nil)

// NewCommandBus freezes the handlers of reg into a bus. Registering on reg
// afterwards does not affect the returned bus.
func NewCommandBus(reg *CommandRegistry, opts ...BusOption) *CommandBus {
	cfg := newConfig(opts)

	handlers := maps.Clone(reg.handlers)
	if handlers == nil {
		handlers = make(map[reflect.Type]HandlerFunc)
	}

	for t, h := range handlers {
		handlers[t] = cfg.wrap(h)
	}

	return &CommandBus{handlers: handlers, cfg: cfg}
}

// Dispatch runs the handler registered for the concrete type of cmd and returns its response and
// error unchanged. It returns an error wrapping ErrHandlerNotFound when no
// handler is registered, or panics under WithStrictRouting.
func Dispatch[C cbus.Command[R], R any](ctx context.Context, b *CommandBus, cmd C) (R, error) {
	out, err := b.dispatch(ctx, routeOf(cmd), cmd)
	if err != nil {
		var zero R
		return zero, err
	}

	return unerase[R](out), nil
}

// DispatchAny routes a command whose type is only known at runtime. The
// command's dynamic type selects the handler.
func (b *CommandBus) DispatchAny(ctx context.Context, cmd any) (any, error) {
	return b.dispatch(ctx, reflect.TypeOf(cmd), cmd)
}

func (b *CommandBus) dispatch(ctx context.Context, t reflect.Type, cmd any) (any, error) {
	h, ok := b.handlers[t]
	if !ok {
		return nil, b.cfg.notFound("dispatch", kindCommand, t)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return h(ctx, cmd)
}

// Chain dispatches commands in order and stops on the first error.
func (b *CommandBus) Chain(ctx context.Context, cmds ...any) error {
	for _, c := range cmds {
		if _, err := b.DispatchAny(ctx, c); err != nil {
			return err
		}
	}

	return nil
}

// BatchOptions controls Batch execution behavior.
// OnProgress is called after each command completes (success or failure) with done and total.
// OnError is called when a command returns an error with its index, the command value, and the error.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, cmd any, err error)
}

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt {
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, cmd any, err error)) BatchOpt {
	return func(o *BatchOptions) { o.OnError = fn }
}

// Batch dispatches every command sequentially, continuing past failures.
// It stops when ctx is done and returns all errors joined.
func (b *CommandBus) Batch(ctx context.Context, cmds []any, opts ...BatchOpt) error {
	var o BatchOptions
	for _, f := range opts {
		f(&o)
	}

	total := len(cmds)

	var errs []error

	for i, c := range cmds {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		if _, err := b.DispatchAny(ctx, c); err != nil {
			if o.OnError != nil {
				o.OnError(i, c, err)
			}

			errs = append(errs, err)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total)
		}
	}

	return errors.Join(errs...)
}
