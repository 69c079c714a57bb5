package bus

// Header names set on forwarded events.
const (
	HeaderMessageID   = "x-message-id"
	HeaderMessageType = "x-message-type"
)

// PublishOptions controls integration event publishing.
// KeyPath is a gjson path into the JSON body used as the partition/routing key
// when Key is empty (e.g. "sku" or "order.id").
type PublishOptions struct {
	TopicOverride string
	Key           string
	KeyPath       string
	Headers       map[string]string
}
