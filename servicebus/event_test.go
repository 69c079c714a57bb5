package servicebus_test

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	cbus "github.com/next-trace/scg-message-bus/contract/bus"
	"github.com/next-trace/scg-message-bus/servicebus"
)

type inc struct{ By int }

type tagged struct {
	Name string
	Tags []string
}

type snapshot struct {
	Name string
	Tags []string
}

func (s snapshot) Clone() snapshot {
	return snapshot{Name: s.Name, Tags: slices.Clone(s.Tags)}
}

type unheard struct{}

func record[E cbus.Event](log *[]string, name string) cbus.EventHandler[E] {
	return cbus.EventHandlerFunc[E](func(context.Context, E) error {
		*log = append(*log, name)
		return nil
	})
}

func Test_Publish_InRegistrationOrder(t *testing.T) {
	var log []string

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[inc](reg, record[inc](&log, "A"))
	servicebus.RegisterEvent[inc](reg, record[inc](&log, "B"))

	require.NoError(t, servicebus.Publish[inc](t.Context(), servicebus.NewEventBus(reg), inc{By: 1}))
	require.Equal(t, []string{"A", "B"}, log)
}

func Test_Publish_Accumulates(t *testing.T) {
	var counter int

	adder := cbus.EventHandlerFunc[inc](func(_ context.Context, e inc) error {
		counter += e.By
		return nil
	})

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[inc](reg, adder)
	servicebus.RegisterEvent[inc](reg, adder)

	b := servicebus.NewEventBus(reg)

	require.NoError(t, servicebus.Publish[inc](t.Context(), b, inc{By: 1}))
	require.Equal(t, 2, counter)

	require.NoError(t, servicebus.Publish[inc](t.Context(), b, inc{By: 2}))
	require.Equal(t, 6, counter)
}

func Test_Publish_ShortCircuits(t *testing.T) {
	boom := errors.New("boom")

	for failAt := range 4 {
		var ran []int

		reg := servicebus.NewEventRegistry()
		for i := range 4 {
			servicebus.RegisterEvent[inc](reg, cbus.EventHandlerFunc[inc](func(context.Context, inc) error {
				ran = append(ran, i)
				if i == failAt {
					return boom
				}

				return nil
			}))
		}

		err := servicebus.Publish[inc](t.Context(), servicebus.NewEventBus(reg), inc{})
		require.Same(t, boom, err)
		require.Len(t, ran, failAt+1, "handlers after position %d must not run", failAt)
	}
}

func Test_Publish_NoHandlersSucceeds(t *testing.T) {
	var log []string

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[inc](reg, record[inc](&log, "A"))

	b := servicebus.NewEventBus(reg)

	require.NoError(t, servicebus.Publish[unheard](t.Context(), b, unheard{}))
	require.NoError(t, b.PublishAny(t.Context(), unheard{}))
	require.NoError(t, servicebus.Publish[inc](t.Context(), servicebus.NewEventBus(&servicebus.EventRegistry{}), inc{}))
	require.Empty(t, log)
	require.Zero(t, servicebus.HandlerCount[unheard](b))
}

func Test_Publish_EachHandlerGetsOwnCopy(t *testing.T) {
	var seen []int

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[inc](reg, cbus.EventHandlerFunc[inc](func(_ context.Context, e inc) error {
		e.By = 100
		return nil
	}))
	servicebus.RegisterEvent[inc](reg, cbus.EventHandlerFunc[inc](func(_ context.Context, e inc) error {
		seen = append(seen, e.By)
		return nil
	}))

	require.NoError(t, servicebus.Publish[inc](t.Context(), servicebus.NewEventBus(reg), inc{By: 1}))
	require.Equal(t, []int{1}, seen)
}

func Test_Publish_ClonerGivesDeepCopies(t *testing.T) {
	var seen [][]string

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[snapshot](reg, cbus.EventHandlerFunc[snapshot](func(_ context.Context, e snapshot) error {
		e.Tags[0] = "mutated"
		return nil
	}))
	servicebus.RegisterEvent[snapshot](reg, cbus.EventHandlerFunc[snapshot](func(_ context.Context, e snapshot) error {
		seen = append(seen, e.Tags)
		return nil
	}))

	orig := snapshot{Name: "s", Tags: []string{"a", "b"}}
	require.NoError(t, servicebus.Publish[snapshot](t.Context(), servicebus.NewEventBus(reg), orig))
	require.Equal(t, [][]string{{"a", "b"}}, seen)
	require.Equal(t, []string{"a", "b"}, orig.Tags)

	// without Clone only the top-level value is copied
	var shallow []string

	reg2 := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[tagged](reg2, cbus.EventHandlerFunc[tagged](func(_ context.Context, e tagged) error {
		e.Name = "changed"
		return nil
	}))
	servicebus.RegisterEvent[tagged](reg2, cbus.EventHandlerFunc[tagged](func(_ context.Context, e tagged) error {
		shallow = append(shallow, e.Name)
		return nil
	}))

	require.NoError(t, servicebus.Publish[tagged](t.Context(), servicebus.NewEventBus(reg2), tagged{Name: "n"}))
	require.Equal(t, []string{"n"}, shallow)
}

func Test_Publish_CancellationStopsRemainingHandlers(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var ran []string

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[inc](reg, cbus.EventHandlerFunc[inc](func(context.Context, inc) error {
		ran = append(ran, "first")
		cancel()

		return nil
	}))
	servicebus.RegisterEvent[inc](reg, record[inc](&ran, "second"))

	err := servicebus.Publish[inc](ctx, servicebus.NewEventBus(reg), inc{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"first"}, ran)
}

func Test_EventBus_FrozenAtBuild(t *testing.T) {
	var log []string

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[inc](reg, record[inc](&log, "A"))

	b := servicebus.NewEventBus(reg)
	servicebus.RegisterEvent[inc](reg, record[inc](&log, "B"))

	require.NoError(t, b.PublishAny(t.Context(), inc{}))
	require.Equal(t, []string{"A"}, log)
	require.Equal(t, 1, servicebus.HandlerCount[inc](b))
	require.Equal(t, 2, servicebus.HandlerCount[inc](servicebus.NewEventBus(reg)))
}

func Test_Publish_Concurrent(t *testing.T) {
	var total atomic.Int64

	adder := cbus.EventHandlerFunc[inc](func(_ context.Context, e inc) error {
		total.Add(int64(e.By))
		return nil
	})

	b := servicebus.NewEventBuilder().
		WithHandler(servicebus.BindEvent[inc](adder), servicebus.BindEvent[inc](adder)).
		Build()

	var g errgroup.Group
	for range 50 {
		g.Go(func() error { return servicebus.Publish[inc](t.Context(), b, inc{By: 1}) })
	}

	require.NoError(t, g.Wait())
	require.Equal(t, int64(100), total.Load())
}

type shipped struct{ ID int }

func (shipped) Topic() string { return "orders.shipped" }

type counter struct{ N int }

type box struct{ N int }

func (b *box) Clone() *box {
	c := *b
	return &c
}

func Test_Publish_InterfaceTypedEventRoutesOnConcreteType(t *testing.T) {
	var got []int

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[shipped](reg, cbus.EventHandlerFunc[shipped](func(_ context.Context, e shipped) error {
		got = append(got, e.ID)
		return nil
	}))

	b := servicebus.NewEventBus(reg)

	var e cbus.IntegrationEvent = shipped{ID: 1}
	require.NoError(t, servicebus.Publish[cbus.IntegrationEvent](t.Context(), b, e))
	require.NoError(t, b.PublishAny(t.Context(), shipped{ID: 2}))
	require.Equal(t, []int{1, 2}, got)
}

func Test_RegisterEvent_RejectsInterfaceTypes(t *testing.T) {
	require.PanicsWithValue(t,
		"servicebus: register event bus.IntegrationEvent: interface types cannot be routed, register the concrete type",
		func() {
			servicebus.RegisterEvent[cbus.IntegrationEvent](servicebus.NewEventRegistry(), record[cbus.IntegrationEvent](new([]string), "x"))
		})
}

func Test_RegisterEvent_ReferenceTypesNeedCloner(t *testing.T) {
	reg := servicebus.NewEventRegistry()

	require.PanicsWithValue(t,
		"servicebus: register event *servicebus_test.counter: reference-typed events must implement bus.Cloner",
		func() { servicebus.RegisterEvent[*counter](reg, record[*counter](new([]string), "x")) })
	require.Panics(t, func() { servicebus.RegisterEvent[[]int](reg, record[[]int](new([]string), "x")) })
	require.Panics(t, func() { servicebus.RegisterEvent[map[string]int](reg, record[map[string]int](new([]string), "x")) })
	require.Zero(t, reg.Len())
}

func Test_Publish_PointerEventsAreClonedPerHandler(t *testing.T) {
	var seen []int

	reg := servicebus.NewEventRegistry()
	servicebus.RegisterEvent[*box](reg, cbus.EventHandlerFunc[*box](func(_ context.Context, e *box) error {
		e.N = 99
		return nil
	}))
	servicebus.RegisterEvent[*box](reg, cbus.EventHandlerFunc[*box](func(_ context.Context, e *box) error {
		seen = append(seen, e.N)
		return nil
	}))

	orig := &box{N: 1}
	require.NoError(t, servicebus.Publish[*box](t.Context(), servicebus.NewEventBus(reg), orig))
	require.Equal(t, []int{1}, seen)
	require.Equal(t, 1, orig.N)
}
