package bus

// Event represents an in-process fact broadcast to zero or more handlers.
// Events are delivered by value; every handler receives its own copy. Pointer,
// map and slice events must implement Cloner to be registered.
type Event = any

// Cloner is implemented by events that carry reference types (slices, maps,
// pointers) and need a deep copy per handler. When an event of type E
// implements Cloner[E], each handler receives the result of Clone.
type Cloner[E any] interface {
	Clone() E
}

// IntegrationEvent is an event that may also leave the process through an
// EventPublisher. Topic() guides routing on the broker side.
type IntegrationEvent interface{ Topic() string }
