package pulse

import "errors"

// Sentinel errors for the event bus.
var (
	// ErrInvalidArgument is returned for bad subscribe/emit/use/onError input:
	// an empty event name, a nil listener, a nil middleware or handler.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWaitTimeout is returned by WaitFor when no emission of the awaited
	// event occurs within the timeout window.
	ErrWaitTimeout = errors.New("timeout waiting for event")
)

// ListenerError wraps a failure from an individual listener with the event
// and subscription it belongs to. Listener failures are isolated: they reach
// the error channel but never abort the rest of the batch.
type ListenerError struct {
	// Event is the event name being processed.
	Event string

	// ListenerID is the ID of the listener that failed.
	ListenerID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return "listener " + e.ListenerID + " failed on event " + e.Event + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// MiddlewareError wraps a failure from the middleware pipeline. A middleware
// failure aborts the entire emission before anything is recorded or queued.
type MiddlewareError struct {
	// Event is the event name being emitted.
	Event string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *MiddlewareError) Error() string {
	return "middleware failed for event " + e.Event + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *MiddlewareError) Unwrap() error {
	return e.Err
}
