// Package pulse provides an in-process publish/subscribe event dispatcher:
// producers emit named events with payloads; listeners register by exact
// name or wildcard pattern and receive middleware-transformed payloads with
// configurable priority, timeout, retry, and once-only semantics.
//
// # Architecture
//
//	                ┌─────────────────────────────────────────┐
//	                │                  Bus                     │
//	                │  - Subscription registry (exact + glob)  │
//	                │  - Middleware pipeline                   │
//	                │  - Serialized dispatch queue             │
//	                └─────────────────────────────────────────┘
//	                                   │
//	        ┌──────────────────────────┼──────────────────────────┐
//	        ▼                          ▼                          ▼
//	┌───────────────┐        ┌─────────────────┐        ┌─────────────────┐
//	│  topic        │        │  dispatch       │        │  History/Stats  │
//	│  - trie-based │        │  - timeout race │        │  - bounded log  │
//	│    matching   │        │  - linear retry │        │    per event    │
//	└───────────────┘        └─────────────────┘        └─────────────────┘
//
// # Emission flow
//
// Emit passes the payload through the middleware pipeline, records it into
// the bounded per-event history, queues it, and returns a Pending future.
// A single drain loop pops emissions in strict FIFO order and fully
// processes one before starting the next: exact and wildcard-matched
// listeners are merged, sorted by priority (higher first), and invoked
// through the execution policy engine. Synchronous listeners settle in
// order; async and retry listeners start in order but complete concurrently,
// and the loop waits for all of them before settling the emission's result
// list.
//
// # Wildcard patterns
//
// Event names are dot-segmented ("user.login"). A pattern segment "*"
// matches exactly one name segment, and a pattern only matches names with
// the same segment count:
//
//	user.*      matches user.login, user.logout
//	user.*      does NOT match user.login.success
//
// # Failure model
//
// Middleware failures abort the emission and reach both the error channel
// and the caller. Synchronous listener failures are isolated: they reach the
// error channel and appear in the result list but never abort the batch.
// Async and retry failures are folded into the result list as data. Timeouts
// abandon the waiting, not the execution: a late result is discarded.
//
// # Example
//
//	bus := pulse.New()
//	defer bus.Drain(context.Background())
//
//	unsub, _ := bus.Subscribe("order.*", func(ctx context.Context, data any) (any, error) {
//	    return handle(data)
//	}, pulse.WithPattern(), pulse.WithPriority(10))
//	defer unsub()
//
//	results, err := bus.Emit(ctx, "order.created", payload).Wait(ctx)
package pulse
