// Package envelope turns integration events into broker-ready payloads.
// It is shared by the transport adapters so they agree on topic, key and
// header conventions.
package envelope

import (
	"encoding/json"
	"maps"

	"github.com/tidwall/gjson"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
)

// HeaderKey carries the partition/routing key on transports without a native key.
const HeaderKey = "key"

// Message is an encoded integration event.
type Message struct {
	Topic   string
	Key     string
	Headers map[string]string
	Body    []byte
}

// Build encodes e and resolves its topic, key and headers from opts.
func Build(e cbus.IntegrationEvent, opts cbus.PublishOptions) (Message, error) {
	body, err := Encode(e)
	if err != nil {
		return Message{}, err
	}

	key := Key(body, opts)

	return Message{
		Topic:   Topic(e, opts),
		Key:     key,
		Headers: Headers(opts, key),
		Body:    body,
	}, nil
}

// Encode serializes v as JSON.
func Encode(v any) ([]byte, error) { return json.Marshal(v) }

// Topic returns opts.TopicOverride when set, otherwise e.Topic().
func Topic(e cbus.IntegrationEvent, opts cbus.PublishOptions) string {
	if opts.TopicOverride != "" {
		return opts.TopicOverride
	}

	return e.Topic()
}

// Key returns opts.Key, or the value found at opts.KeyPath in body.
func Key(body []byte, opts cbus.PublishOptions) string {
	if opts.Key != "" || opts.KeyPath == "" {
		return opts.Key
	}

	if r := gjson.GetBytes(body, opts.KeyPath); r.Exists() {
		return r.String()
	}

	return ""
}

// Headers copies opts.Headers and adds the key header when key is set.
func Headers(opts cbus.PublishOptions, key string) map[string]string {
	h := make(map[string]string, len(opts.Headers)+1)
	maps.Copy(h, opts.Headers)

	if key != "" {
		h[HeaderKey] = key
	}

	return h
}
