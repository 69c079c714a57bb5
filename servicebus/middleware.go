package servicebus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// Middleware wraps handler execution. It sees the erased message, so it works
// the same for commands, queries and events.
type Middleware func(next HandlerFunc) HandlerFunc

// Logging logs every handled message: debug on success, error on failure.
// A nil logger discards.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg any) (any, error) {
			start := time.Now()
			out, err := next(ctx, msg)

			attrs := []any{"message", typeName(reflect.TypeOf(msg)), "duration", time.Since(start)}
			if err != nil {
				logger.ErrorContext(ctx, "servicebus: handler failed", append(attrs, "error", err)...)
			} else {
				logger.DebugContext(ctx, "servicebus: handled", attrs...)
			}

			return out, err
		}
	}
}

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Message string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %s: %v", berr.ErrCodeHandlerPanicked, e.Message, e.Value)
}

func (e *PanicError) Unwrap() error { return berr.ErrHandlerPanicked }

// Recover turns a handler panic into a *PanicError. Type erasure violations are
// re-panicked: they mean the bus itself is miswired.
func Recover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, msg any) (out any, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				if re, ok := r.(error); ok {
					var ee *ErasureError
					if errors.As(re, &ee) {
						panic(r)
					}
				}

				out = nil
				err = &PanicError{Message: typeName(reflect.TypeOf(msg)), Value: r, Stack: debug.Stack()}
			}()

			return next(ctx, msg)
		}
	}
}
