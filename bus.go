package pulse

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsekit/pulse/dispatch"
)

// ErrorHandler receives every error funneled through the bus error channel:
// middleware failures, subscribe/unsubscribe failures, and synchronous-path
// listener failures. Handlers run synchronously in registration order.
type ErrorHandler func(err error)

// Bus is an in-process publish/subscribe event dispatcher. Producers emit
// named events; listeners subscribe by exact name or wildcard pattern and
// receive middleware-transformed payloads with configurable priority,
// timeout, retry, and once-only semantics.
//
// Emitted events are serialized through a single drain loop: one event is
// fully processed, including all its fan-out listeners, before the next
// begins. A Bus is an independent instance; multiple buses coexist without
// shared state.
type Bus struct {
	registry *registry
	history  *historyStore
	pipeline *pipeline
	exec     *dispatch.Executor

	// Dispatch queue. draining guards the single active drain loop.
	qmu      sync.Mutex
	queue    []*queueItem
	draining bool
	waiters  []chan struct{}

	// Error channel. Append-only.
	emu         sync.RWMutex
	errHandlers []ErrorHandler

	// Retry policy, read at invocation time.
	rmu   sync.RWMutex
	retry RetryConfig

	// Debug logging. Toggles output only, never behavior.
	lmu    sync.Mutex
	logger *zap.Logger
	debug  atomic.Bool

	// Stats
	eventsEmitted     atomic.Uint64
	eventsProcessed   atomic.Uint64
	listenersExecuted atomic.Uint64
	listenerErrors    atomic.Uint64
	timeouts          atomic.Uint64
	retries           atomic.Uint64
}

// New creates a new event bus with the given options.
func New(opts ...BusOption) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &Bus{
		registry: newRegistry(),
		history:  newHistoryStore(config.historyLimit),
		pipeline: &pipeline{},
		retry:    config.retry,
		logger:   config.logger,
	}

	b.exec = dispatch.NewExecutor(dispatch.WithPanicHandler(func(data, panicValue any, _ []byte) {
		b.debugLog("listener panic recovered", zap.Any("panic", panicValue))
	}))

	return b
}

// Subscribe registers a listener for an event name, or for a wildcard
// pattern when the WithPattern option is given. It returns a capability that
// removes exactly this subscription.
//
// The same callback may be subscribed multiple times with different options;
// each subscription is independent.
func (b *Bus) Subscribe(event string, fn Listener, opts ...SubscribeOption) (Unsubscribe, error) {
	if event == "" || fn == nil {
		b.handleError(ErrInvalidArgument)
		return nil, ErrInvalidArgument
	}

	cfg := DefaultListenerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &listener{
		id:    uuid.NewString(),
		event: event,
		fn:    fn,
		fnPtr: reflect.ValueOf(fn).Pointer(),
		cfg:   cfg,
	}
	b.registry.add(l)

	b.debugLog("listener subscribed",
		zap.String("event", event),
		zap.String("listener", l.id),
		zap.Bool("pattern", cfg.Pattern))

	return func() { b.registry.remove(l.id) }, nil
}

// Once registers a listener that fires exactly once, then removes itself.
func (b *Bus) Once(event string, fn Listener) (Unsubscribe, error) {
	return b.Subscribe(event, fn, WithOnce())
}

// Unsubscribe removes listeners registered under event. With a non-nil fn it
// removes every listener whose callback matches fn by function identity;
// with a nil fn it removes the entire entry for the name - all listeners,
// not just one. The asymmetry (match-by-identity vs remove-all) is part of
// the contract.
func (b *Bus) Unsubscribe(event string, fn Listener) {
	if event == "" {
		b.handleError(ErrInvalidArgument)
		return
	}

	var removed int
	if fn == nil {
		removed = b.registry.removeAllFor(event)
	} else {
		removed = b.registry.removeByCallback(event, reflect.ValueOf(fn).Pointer())
	}

	b.debugLog("unsubscribed", zap.String("event", event), zap.Int("removed", removed))
}

// Use appends a middleware to the transformation pipeline. Middlewares run
// in registration order on every emission; there is no removal operation.
func (b *Bus) Use(fn Middleware) error {
	if fn == nil {
		b.handleError(ErrInvalidArgument)
		return ErrInvalidArgument
	}
	b.pipeline.use(fn)
	return nil
}

// OnError registers a handler on the error channel.
func (b *Bus) OnError(h ErrorHandler) error {
	if h == nil {
		b.handleError(ErrInvalidArgument)
		return ErrInvalidArgument
	}

	b.emu.Lock()
	b.errHandlers = append(b.errHandlers, h)
	b.emu.Unlock()
	return nil
}

// SetDebug toggles debug logging. It changes output only, not behavior.
// If no logger was injected via WithLogger, enabling debug installs a zap
// development logger.
func (b *Bus) SetDebug(enabled bool) {
	if enabled {
		b.lmu.Lock()
		if b.logger == nil {
			b.logger = zap.Must(zap.NewDevelopment())
		}
		b.lmu.Unlock()
	}
	b.debug.Store(enabled)
}

// SetRetryConfig overlays the present (non-zero) fields of cfg onto the
// current retry policy. The policy is read at invocation time, so the change
// affects all subsequent retried invocations but not in-flight ones.
func (b *Bus) SetRetryConfig(cfg RetryConfig) {
	b.rmu.Lock()
	b.retry.merge(cfg)
	b.rmu.Unlock()
}

// retryPolicy snapshots the current retry policy.
func (b *Bus) retryPolicy() dispatch.Policy {
	b.rmu.RLock()
	defer b.rmu.RUnlock()

	return dispatch.Policy{
		MaxAttempts: b.retry.MaxRetries,
		Delay:       b.retry.RetryDelay,
	}
}

// Events returns the exact-registered event names, sorted. Wildcard
// subscriptions are excluded.
func (b *Bus) Events() []string {
	return b.registry.events()
}

// HasListeners returns true if the event has exact-match listeners.
func (b *Bus) HasListeners(event string) bool {
	return b.registry.count(event) > 0
}

// ListenerCount returns the exact-match listener count for the event.
func (b *Bus) ListenerCount(event string) int {
	return b.registry.count(event)
}

// RemoveAllListeners clears the exact-match registry. Wildcard subscriptions
// are left intact; that asymmetry is deliberate and covered by tests. Use
// Unsubscribe with the pattern string to remove wildcard subscriptions.
func (b *Bus) RemoveAllListeners() {
	b.registry.clearExact()
}

// History returns the recorded emissions for an event, newest first.
func (b *Bus) History(event string) []HistoryEntry {
	return b.history.history(event)
}

// AllHistories returns every event's history in first-emission order.
func (b *Bus) AllHistories() []EventHistory {
	return b.history.all()
}

// ClearHistory drops the recorded history for one event.
func (b *Bus) ClearHistory(event string) {
	b.history.clear(event)
}

// ClearAllHistory drops all recorded history.
func (b *Bus) ClearAllHistory() {
	b.history.clearAll()
}

// EventStats summarizes an event's recorded emissions and current listeners.
func (b *Bus) EventStats(event string) EventStats {
	stats := b.history.stats(event)
	stats.ListenerCount = b.registry.count(event)
	return stats
}

// BusStats contains bus-wide counters.
type BusStats struct {
	// EventsEmitted is the total number of Emit calls accepted.
	EventsEmitted uint64

	// EventsProcessed is the number of emissions fully processed.
	EventsProcessed uint64

	// ListenersExecuted is the total number of listener invocations.
	ListenersExecuted uint64

	// ListenerErrors is the number of invocations that failed.
	ListenerErrors uint64

	// Timeouts is the number of invocations abandoned on timeout.
	Timeouts uint64

	// Retries is the number of re-invocation attempts beyond the first.
	Retries uint64

	// QueueDepth is the current number of queued emissions.
	QueueDepth int

	// ActiveListeners is the current number of subscriptions.
	ActiveListeners int
}

// Stats returns current bus statistics.
func (b *Bus) Stats() BusStats {
	b.qmu.Lock()
	depth := len(b.queue)
	b.qmu.Unlock()

	return BusStats{
		EventsEmitted:     b.eventsEmitted.Load(),
		EventsProcessed:   b.eventsProcessed.Load(),
		ListenersExecuted: b.listenersExecuted.Load(),
		ListenerErrors:    b.listenerErrors.Load(),
		Timeouts:          b.timeouts.Load(),
		Retries:           b.retries.Load(),
		QueueDepth:        depth,
		ActiveListeners:   b.registry.size(),
	}
}

// handleError funnels an error to every registered handler, synchronously and
// in registration order. Errors are never swallowed silently: they always
// reach the channel, and are additionally logged when debug mode is enabled.
func (b *Bus) handleError(err error) {
	b.debugLog("event bus error", zap.Error(err))

	b.emu.RLock()
	handlers := make([]ErrorHandler, len(b.errHandlers))
	copy(handlers, b.errHandlers)
	b.emu.RUnlock()

	for _, h := range handlers {
		h(err)
	}
}

// debugLog writes a debug line when debug mode is on.
func (b *Bus) debugLog(msg string, fields ...zap.Field) {
	if !b.debug.Load() {
		return
	}

	b.lmu.Lock()
	logger := b.logger
	b.lmu.Unlock()

	if logger != nil {
		logger.Debug(msg, fields...)
	}
}
