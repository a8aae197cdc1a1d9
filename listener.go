package pulse

import (
	"context"
	"time"
)

// Listener is a registered callback. It receives the (middleware-transformed)
// event payload and returns a result value or an error.
type Listener func(ctx context.Context, data any) (any, error)

// Unsubscribe removes the subscription it was returned for. It is idempotent.
type Unsubscribe func()

// FilterFunc is a predicate for filtering events per listener.
// Return true to deliver the event, false to skip this listener.
type FilterFunc func(data any) bool

// ListenerConfig contains the execution options for a single subscription.
// It is immutable once the subscription is created.
type ListenerConfig struct {
	// Once auto-removes the listener after its single dispatch.
	Once bool

	// Priority determines execution order; higher values run first.
	// Equal priorities run in subscription order.
	Priority int

	// Async schedules the listener into the fan-out set instead of the
	// synchronous pass.
	Async bool

	// Pattern files the listener under the wildcard registry, treating the
	// subscribed name as a dot-segmented pattern.
	Pattern bool

	// Timeout bounds a single invocation attempt; zero means no timeout.
	Timeout time.Duration

	// Retry schedules the listener through the retry wrapper (and therefore
	// into the fan-out set). The retry policy is the bus-wide one, read at
	// invocation time.
	Retry bool

	// Filter, when set, must return true for the event to be delivered.
	Filter FilterFunc
}

// DefaultListenerConfig returns the default subscription configuration.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		Priority: 0,
		Timeout:  0,
	}
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*ListenerConfig)

// WithOnce auto-removes the listener after its first dispatch.
func WithOnce() SubscribeOption {
	return func(c *ListenerConfig) {
		c.Once = true
	}
}

// WithPriority sets the listener priority. Higher values run first.
func WithPriority(p int) SubscribeOption {
	return func(c *ListenerConfig) {
		c.Priority = p
	}
}

// WithAsync schedules the listener into the fan-out set: it is started in
// priority order but awaited together with the other fan-out listeners after
// the synchronous pass.
func WithAsync() SubscribeOption {
	return func(c *ListenerConfig) {
		c.Async = true
	}
}

// WithPattern treats the subscribed name as a wildcard pattern
// (e.g. "user.*").
func WithPattern() SubscribeOption {
	return func(c *ListenerConfig) {
		c.Pattern = true
	}
}

// WithTimeout bounds each invocation attempt of the listener.
func WithTimeout(d time.Duration) SubscribeOption {
	return func(c *ListenerConfig) {
		c.Timeout = d
	}
}

// WithRetry re-invokes the listener on failure per the bus retry config.
func WithRetry() SubscribeOption {
	return func(c *ListenerConfig) {
		c.Retry = true
	}
}

// WithFilter sets a per-listener delivery predicate.
func WithFilter(f FilterFunc) SubscribeOption {
	return func(c *ListenerConfig) {
		c.Filter = f
	}
}

// listener is the internal subscription record. Identity is the ID, not the
// callback, so the same function may be subscribed multiple times with
// different options.
type listener struct {
	id    string
	event string // exact name or pattern, depending on cfg.Pattern
	fn    Listener
	fnPtr uintptr // callback identity for unsubscribe-by-callback
	cfg   ListenerConfig
}

// Typed adapts a typed callback into a Listener. Payloads of any other type
// are skipped silently, contributing a zero result.
func Typed[T any](fn func(ctx context.Context, data T) (any, error)) Listener {
	return func(ctx context.Context, data any) (any, error) {
		if v, ok := data.(T); ok {
			return fn(ctx, v)
		}
		// Type mismatch - skip silently
		return nil, nil
	}
}
