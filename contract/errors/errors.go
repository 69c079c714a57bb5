package errors

// Error codes for the bus contracts. Keep stable; used across adapters and bus.
const (
	ErrCodeHandlerNotFound     = "servicebus.handler_not_found"
	ErrCodeHandlerTypeMismatch = "servicebus.handler_type_mismatch"
	ErrCodeAsyncNotConfigured  = "servicebus.async_not_configured"
	ErrCodePublishFailed       = "servicebus.publish_failed"
	ErrCodeSerializationFailed = "servicebus.serialization_failed"
	ErrCodeHandlerPanicked     = "servicebus.handler_panicked"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

// ErrHandlerNotFound is returned (or, with strict routing, panicked) when no
// handler is registered for a command or query type. Events never produce it.
var ErrHandlerNotFound = Code(ErrCodeHandlerNotFound)

var (
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrAsyncNotConfigured  = Code(ErrCodeAsyncNotConfigured)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrHandlerPanicked     = Code(ErrCodeHandlerPanicked)
)
