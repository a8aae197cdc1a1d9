package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Func is a listener invocation: it receives the event payload and returns a
// result value or an error.
type Func func(ctx context.Context, data any) (any, error)

// Result captures the outcome of a single listener invocation.
type Result struct {
	// Value is the listener's return value on success.
	Value any

	// Err is the failure, if any: the listener's error, a TimeoutError,
	// a PanicError, or a RetryError.
	Err error

	// Panicked is true if the listener panicked.
	Panicked bool

	// Attempts is the number of invocation attempts made (1 unless retried).
	Attempts int

	// Duration is how long the final attempt ran, as observed by the caller.
	Duration time.Duration
}

// PanicHandler is called when a listener panics.
type PanicHandler func(data any, panicValue any, stack []byte)

// Executor runs listener invocations with panic recovery and timing.
// It is the policy engine the bus wraps every listener call with.
type Executor struct {
	panicHandler PanicHandler
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the panic handler for the executor.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// Execute runs a listener with the given payload and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(ctx context.Context, data any, fn Func) (result Result) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return Result{Err: err, Attempts: 1}
	}

	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Value = nil
			result.Err = &PanicError{Value: r, Stack: stack}
			result.Panicked = true
			result.Attempts = 1

			// Protect the panic handler call - don't let it crash the process
			if e.panicHandler != nil {
				func() {
					defer func() { _ = recover() }()
					e.panicHandler(data, r, stack)
				}()
			}
		}
	}()

	value, err := fn(ctx, data)

	result.Value = value
	result.Err = err
	result.Attempts = 1

	return result
}

// ExecuteWithTimeout races a listener invocation against a timer.
// If the timer fires first the result is a TimeoutError; the listener keeps
// running in its goroutine and its late result is discarded. This is
// deliberate fire-and-forget cancellation: the waiting is abandoned, the
// execution is not preempted.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, data any, fn Func, timeout time.Duration) Result {
	if timeout <= 0 {
		return e.Execute(ctx, data, fn)
	}

	// Buffered so the detached goroutine never leaks on timeout.
	done := make(chan Result, 1)
	go func() {
		done <- e.Execute(ctx, data, fn)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		return result
	case <-timer.C:
		return Result{Err: &TimeoutError{Timeout: timeout}, Attempts: 1}
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Attempts: 1}
	}
}

// Policy configures retry behavior for a single invocation.
// It is read at invocation time, never captured at subscribe time.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay scales the pause between attempts: the wait before attempt k
	// is (k-1) * Delay (linear backoff).
	Delay time.Duration
}

// ExecuteWithRetry re-invokes a (timeout-wrapped) listener until it succeeds
// or the policy's attempts are exhausted. On exhaustion the result carries a
// RetryError wrapping the final failure.
func (e *Executor) ExecuteWithRetry(ctx context.Context, data any, fn Func, timeout time.Duration, p Policy) Result {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last Result
	for k := 1; k <= attempts; k++ {
		if k > 1 {
			timer := time.NewTimer(p.Delay * time.Duration(k-1))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return Result{Err: ctx.Err(), Attempts: k - 1}
			}
		}

		result := e.ExecuteWithTimeout(ctx, data, fn, timeout)
		result.Attempts = k
		if result.Err == nil {
			return result
		}
		last = result
	}

	return Result{
		Err:      &RetryError{Attempts: attempts, Last: last.Err},
		Panicked: last.Panicked,
		Attempts: attempts,
		Duration: last.Duration,
	}
}
