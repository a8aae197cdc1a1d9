// Package dispatch implements the execution policy engine for the pulse
// event bus: the timeout and retry wrapping applied around a single listener
// invocation.
//
// The Executor runs listeners with panic recovery and timing. Timeouts are
// fire-and-forget: the invocation races a timer, and when the timer wins the
// caller observes a TimeoutError while the listener's goroutine runs to
// completion with its result discarded. Retries use linear backoff - the
// pause before attempt k is (k-1) times the policy delay - and the retry
// policy is read at invocation time so configuration changes apply to all
// subsequent invocations.
package dispatch
