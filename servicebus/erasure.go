package servicebus

import (
	"context"
	"fmt"
	"reflect"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// HandlerFunc is the erased shape every handler is stored as. The closure
// behind it captures the typed handler and knows its own message type.
// Event handlers return a nil value.
type HandlerFunc func(ctx context.Context, msg any) (any, error)

const (
	stageMessage = "message"
	stageResult  = "result"
)

// ErasureError reports that an erased value did not carry the type the
// handler was registered for. It is only ever raised with panic: the router
// looks handlers up by the same type identity it erases values with, so this
// means the routing itself is broken.
type ErasureError struct {
	Stage string
	Want  reflect.Type
	Got   reflect.Type
}

func (e *ErasureError) Error() string {
	return fmt.Sprintf("%s: %s want %s, got %s", berr.ErrCodeHandlerTypeMismatch, e.Stage, typeName(e.Want), typeName(e.Got))
}

func (e *ErasureError) Unwrap() error { return berr.ErrHandlerTypeMismatch }

// mustAs recovers the concrete type of an erased value and panics if the value
// is of any other type.
func mustAs[T any](v any, stage string) T {
	t, ok := v.(T)
	if !ok {
		panic(&ErasureError{Stage: stage, Want: reflect.TypeFor[T](), Got: reflect.TypeOf(v)})
	}

	return t
}

// unerase converts an erased handler result back to R. A nil value yields the
// zero R; it only occurs for interface-typed responses or when no handler ran.
func unerase[R any](v any) R {
	if v == nil {
		var zero R
		return zero
	}

	return mustAs[R](v, stageResult)
}

func eraseCommand[C cbus.Command[R], R any](h cbus.CommandHandler[C, R]) HandlerFunc {
	return func(ctx context.Context, msg any) (any, error) {
		res, err := h.Handle(ctx, mustAs[C](msg, stageMessage))
		return res, err
	}
}

func eraseQuery[Q cbus.Query[R], R any](h cbus.QueryHandler[Q, R]) HandlerFunc {
	return func(ctx context.Context, msg any) (any, error) {
		res, err := h.Handle(ctx, mustAs[Q](msg, stageMessage))
		return res, err
	}
}

func eraseEvent[E cbus.Event](h cbus.EventHandler[E]) HandlerFunc {
	return func(ctx context.Context, msg any) (any, error) {
		return nil, h.Handle(ctx, mustAs[E](msg, stageMessage))
	}
}

// Typed views over erased handlers, handed out by the registry lookups.

type commandView[C cbus.Command[R], R any] struct{ call HandlerFunc }

func (v commandView[C, R]) Handle(ctx context.Context, c C) (R, error) {
	out, err := v.call(ctx, c)
	return unerase[R](out), err
}

type queryView[Q cbus.Query[R], R any] struct{ call HandlerFunc }

func (v queryView[Q, R]) Handle(ctx context.Context, q Q) (R, error) {
	out, err := v.call(ctx, q)
	return unerase[R](out), err
}

type eventView[E cbus.Event] struct{ call HandlerFunc }

func (v eventView[E]) Handle(ctx context.Context, e E) error {
	_, err := v.call(ctx, e)
	return err
}

// duplicate produces the copy of an event handed to a single handler.
// Unboxing already copies the value; Cloner covers reference-typed fields.
func duplicate[E cbus.Event](v any) any {
	if c, ok := v.(cbus.Cloner[E]); ok {
		return c.Clone()
	}

	return v
}
