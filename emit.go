package pulse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pulsekit/pulse/dispatch"
	"github.com/pulsekit/pulse/topic"
)

// DefaultWaitForTimeout is used by WaitFor when no positive timeout is given.
const DefaultWaitForTimeout = 5 * time.Second

// queueItem is one emission waiting in the dispatch queue. It is created at
// Emit time, consumed in FIFO order by the single drain loop, and discarded
// once its Pending settles.
type queueItem struct {
	ctx     context.Context
	event   string
	data    any
	entry   *HistoryEntry
	pending *Pending
}

// Emit dispatches an event to all matching listeners. The payload first
// passes through the middleware pipeline, is recorded into history, and is
// then queued; the returned Pending settles with the aggregated result list
// once the emission has been fully processed.
//
// A middleware failure aborts the emission: nothing is recorded or queued,
// the error reaches the error channel, and the returned Pending is already
// rejected. Per-listener failures never reject the Pending; they appear as
// Result entries and, for synchronous-path listeners, on the error channel.
func (b *Bus) Emit(ctx context.Context, event string, data any) *Pending {
	if event == "" {
		b.handleError(ErrInvalidArgument)
		return newSettledPending(ErrInvalidArgument)
	}

	b.eventsEmitted.Add(1)

	transformed, err := b.pipeline.apply(ctx, event, data)
	if err != nil {
		werr := &MiddlewareError{Event: event, Err: err}
		b.handleError(werr)
		return newSettledPending(werr)
	}

	item := &queueItem{
		ctx:     ctx,
		event:   event,
		data:    transformed,
		entry:   b.history.record(event, transformed),
		pending: newPending(),
	}

	b.debugLog("event queued", zap.String("event", event))
	b.enqueue(item)

	return item.pending
}

// EmitLater waits delay, then emits and blocks until the emission settles.
func (b *Bus) EmitLater(ctx context.Context, event string, data any, delay time.Duration) ([]Result, error) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.Emit(ctx, event, data).Wait(ctx)
}

// WaitFor blocks until the next emission of event and returns its
// (transformed) payload. A non-positive timeout means the 5s default. If no
// emission occurs within the window the returned error wraps ErrWaitTimeout.
// Internally this is a once subscription.
func (b *Bus) WaitFor(ctx context.Context, event string, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		timeout = DefaultWaitForTimeout
	}

	payload := make(chan any, 1)
	unsub, err := b.Once(event, func(_ context.Context, data any) (any, error) {
		payload <- data
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-payload:
		return data, nil
	case <-timer.C:
		unsub()
		return nil, fmt.Errorf("%w: %s", ErrWaitTimeout, event)
	case <-ctx.Done():
		unsub()
		return nil, ctx.Err()
	}
}

// Drain blocks until the dispatch queue is empty and the drain loop idle,
// or the context is cancelled. It does not stop the bus.
func (b *Bus) Drain(ctx context.Context) error {
	b.qmu.Lock()
	if !b.draining && len(b.queue) == 0 {
		b.qmu.Unlock()
		return nil
	}
	w := make(chan struct{})
	b.waiters = append(b.waiters, w)
	b.qmu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue appends an item and starts the drain loop if it is not running.
func (b *Bus) enqueue(item *queueItem) {
	b.qmu.Lock()
	b.queue = append(b.queue, item)
	start := !b.draining
	if start {
		b.draining = true
	}
	b.qmu.Unlock()

	if start {
		go b.drain()
	}
}

// drain is the single active worker that pops and fully processes one queued
// emission at a time, in strict FIFO order. The loop never advances until
// the current emission's listener pass - fan-out included - has completed,
// so two events never interleave their listener executions.
func (b *Bus) drain() {
	for {
		b.qmu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			for _, w := range b.waiters {
				close(w)
			}
			b.waiters = nil
			b.qmu.Unlock()
			return
		}
		item := b.queue[0]
		b.queue = b.queue[1:]
		b.qmu.Unlock()

		b.process(item)
	}
}

// process runs one emission's full listener pass and settles its Pending.
func (b *Bus) process(item *queueItem) {
	start := time.Now()

	if err := item.ctx.Err(); err != nil {
		item.pending.settle(nil, err)
		return
	}

	// Snapshot of exact + matching wildcard listeners, priority-sorted.
	listeners := b.registry.match(item.event)

	results := make([]Result, 0, len(listeners))

	// Fan-out results keep scheduling order, allSettled-style: slot i is
	// written by goroutine i and appended after the synchronous results.
	var (
		wg   sync.WaitGroup
		fan  []*dispatch.Result
		fns  []*listener
		data = item.data
	)

	for _, l := range listeners {
		if l.cfg.Filter != nil && !l.cfg.Filter(data) {
			continue
		}

		switch {
		case l.cfg.Retry:
			slot := new(dispatch.Result)
			fan = append(fan, slot)
			fns = append(fns, l)
			policy := b.retryPolicy()
			wg.Add(1)
			go func(l *listener, slot *dispatch.Result) {
				defer wg.Done()
				*slot = b.exec.ExecuteWithRetry(item.ctx, data, dispatch.Func(l.fn), l.cfg.Timeout, policy)
			}(l, slot)

		case l.cfg.Async:
			slot := new(dispatch.Result)
			fan = append(fan, slot)
			fns = append(fns, l)
			wg.Add(1)
			go func(l *listener, slot *dispatch.Result) {
				defer wg.Done()
				*slot = b.exec.ExecuteWithTimeout(item.ctx, data, dispatch.Func(l.fn), l.cfg.Timeout)
			}(l, slot)

		default:
			res := b.exec.ExecuteWithTimeout(item.ctx, data, dispatch.Func(l.fn), l.cfg.Timeout)
			b.recordExecution(res)
			if res.Err != nil {
				// Isolation: the failure reaches the error channel but
				// processing of subsequent listeners continues.
				b.handleError(&ListenerError{Event: item.event, ListenerID: l.id, Err: res.Err})
			}
			results = append(results, Result{Value: res.Value, Err: res.Err})
		}

		// Once listeners leave their owning set as soon as they have been
		// scheduled or executed; iteration stays safe on the snapshot.
		if l.cfg.Once {
			b.registry.remove(l.id)
		}
	}

	// Await the fan-out set; completion order among its members is
	// unconstrained, but the emission does not finish before all settle.
	wg.Wait()

	for i, slot := range fan {
		b.recordExecution(*slot)
		if slot.Err != nil {
			b.debugLog("fan-out listener failed",
				zap.String("event", item.event),
				zap.String("listener", fns[i].id),
				zap.Error(slot.Err))
		}
		results = append(results, Result{Value: slot.Value, Err: slot.Err})
	}

	elapsed := time.Since(start)
	b.history.finish(item.entry, elapsed)
	b.eventsProcessed.Add(1)

	b.debugLog("event processed",
		zap.String("event", item.event),
		zap.Int("listeners", len(results)),
		zap.Duration("elapsed", elapsed))

	item.pending.settle(results, nil)
}

// recordExecution updates the bus counters for one invocation outcome.
func (b *Bus) recordExecution(res dispatch.Result) {
	b.listenersExecuted.Add(1)
	if res.Attempts > 1 {
		b.retries.Add(uint64(res.Attempts - 1))
	}
	if res.Err == nil {
		return
	}
	b.listenerErrors.Add(1)
	if isTimeout(res.Err) {
		b.timeouts.Add(1)
	}
}

// isTimeout reports whether the failure was a timeout abandonment.
func isTimeout(err error) bool {
	return errors.Is(err, dispatch.ErrTimeout)
}

// Matches reports whether an event name matches a wildcard pattern, using
// the bus's strict segment semantics: equal segment counts, "*" matching
// exactly one segment.
func Matches(event, pattern string) bool {
	return topic.Topic(event).Matches(topic.Topic(pattern))
}
