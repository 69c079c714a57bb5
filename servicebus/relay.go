package servicebus

import (
	"context"
	"fmt"
	"maps"
	"reflect"

	"github.com/google/uuid"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

// Relay returns an event handler that forwards every E it receives to pub.
// Register it like any other handler; its position in the handler list decides
// whether the event leaves the process before or after local handlers run.
//
// Each forwarded event gets a fresh x-message-id header and an x-message-type
// header naming E. Headers in opts are kept; the two above are overwritten.
func Relay[E cbus.IntegrationEvent](pub cbus.EventPublisher, opts cbus.PublishOptions) cbus.EventHandler[E] {
	msgType := typeName(reflect.TypeFor[E]())

	return cbus.EventHandlerFunc[E](func(ctx context.Context, e E) error {
		if pub == nil {
			return fmt.Errorf("relay %s: %w", msgType, berr.ErrAsyncNotConfigured)
		}

		o := opts
		o.Headers = make(map[string]string, len(opts.Headers)+2)
		maps.Copy(o.Headers, opts.Headers)
		o.Headers[cbus.HeaderMessageID] = uuid.NewString()
		o.Headers[cbus.HeaderMessageType] = msgType

		return pub.PublishIntegration(ctx, e, o)
	})
}
