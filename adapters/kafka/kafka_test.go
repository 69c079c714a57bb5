package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/next-trace/scg-message-bus/adapters/kafka"
	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	berr "github.com/next-trace/scg-message-bus/contract/errors"
)

type record struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

type fakeWriter struct {
	calls []record
	err   error
}

func (f *fakeWriter) Write(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	f.calls = append(f.calls, record{topic, key, value, headers})
	return f.err
}

type ev struct {
	Name  string `json:"name"`
	Order struct {
		ID string `json:"id"`
	} `json:"order"`
}

func (ev) Topic() string { return "evt.orders" }

type ev2WithTopic struct{ X int }

func (e ev2WithTopic) Topic() string { return "evt.ev2" }

func TestKafka_PublishIntegration(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)

	po := cbus.PublishOptions{TopicOverride: "evt.audit", Key: "key1", Headers: map[string]string{"ph": "pv"}}

	if err := ad.PublishIntegration(t.Context(), ev{Name: "E"}, po); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fw.calls) != 1 {
		t.Fatalf("want 1, got %d", len(fw.calls))
	}

	p := fw.calls[0]
	if p.topic != "evt.audit" {
		t.Fatalf("topic: %s", p.topic)
	}

	if string(p.key) != "key1" {
		t.Fatalf("key: %s", string(p.key))
	}

	if p.headers["ph"] != "pv" {
		t.Fatalf("pub headers: %+v", p.headers)
	}

	if _, ok := p.headers["key"]; ok {
		t.Fatalf("key must travel as record key only: %+v", p.headers)
	}

	if gjson.GetBytes(p.value, "name").String() != "E" {
		t.Fatalf("value: %s", p.value)
	}
}

func TestKafka_KeyFromPath(t *testing.T) {
	fw := &fakeWriter{}
	e := ev{Name: "E"}
	e.Order.ID = "o-42"

	if err := kafka.New(fw).PublishIntegration(t.Context(), e, cbus.PublishOptions{KeyPath: "order.id"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if string(fw.calls[0].key) != "o-42" {
		t.Fatalf("key: %q", fw.calls[0].key)
	}

	if err := kafka.New(fw).PublishIntegration(t.Context(), ev{}, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if fw.calls[1].key != nil {
		t.Fatalf("want nil key, got %q", fw.calls[1].key)
	}
}

func TestKafka_NilWriterError(t *testing.T) {
	ad := kafka.New(nil)

	if err := ad.PublishIntegration(t.Context(), ev{Name: "E"}, cbus.PublishOptions{}); !errors.Is(err, berr.ErrAsyncNotConfigured) {
		t.Fatalf("want ErrAsyncNotConfigured, got %v", err)
	}
}

func TestKafka_Publish_DefaultTopic_WithPointerEvent(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)
	e := &ev2WithTopic{X: 2}

	if err := ad.PublishIntegration(t.Context(), e, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fw.calls) != 1 {
		t.Fatalf("calls: %d", len(fw.calls))
	}

	if fw.calls[0].topic != "evt.ev2" {
		t.Fatalf("topic: %s", fw.calls[0].topic)
	}
}

func TestKafka_WriteErrors(t *testing.T) {
	boom := errors.New("boom")

	err := kafka.New(&fakeWriter{err: boom}).PublishIntegration(t.Context(), ev{}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) || !errors.Is(err, boom) {
		t.Fatalf("want wrapped error, got %v", err)
	}

	err = kafka.New(&fakeWriter{err: context.DeadlineExceeded}).PublishIntegration(t.Context(), ev{}, cbus.PublishOptions{})
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want bare DeadlineExceeded, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	fw := &fakeWriter{}
	if err := kafka.New(fw).PublishIntegration(ctx, ev{}, cbus.PublishOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	if len(fw.calls) != 0 {
		t.Fatalf("writer called after cancel")
	}
}
