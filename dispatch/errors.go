package dispatch

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for listener execution.
var (
	// ErrTimeout is returned when a listener exceeds its execution timeout.
	ErrTimeout = errors.New("listener execution timed out")

	// ErrPanic is returned when a listener panics.
	ErrPanic = errors.New("listener panicked")

	// ErrRetryExhausted is returned when all retry attempts have failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// TimeoutError reports that a listener did not settle within its timeout.
// The listener itself is not preempted; only the waiting is abandoned.
type TimeoutError struct {
	// Timeout is the limit that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("listener execution timed out after %s", e.Timeout)
}

// Is allows errors.Is to match TimeoutError with ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panicked: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// RetryError reports that every attempt of a retried invocation failed.
// It carries the failure from the final attempt.
type RetryError struct {
	// Attempts is the number of attempts that were made.
	Attempts int

	// Last is the error from the final attempt.
	Last error
}

// Error implements the error interface.
func (e *RetryError) Error() string {
	return fmt.Sprintf("retry attempts exhausted after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the final attempt's error.
func (e *RetryError) Unwrap() error {
	return e.Last
}

// Is allows errors.Is to match RetryError with ErrRetryExhausted.
func (e *RetryError) Is(target error) bool {
	return target == ErrRetryExhausted
}
