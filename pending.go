package pulse

import (
	"context"
	"sync"
)

// Result is one entry of an emission's aggregated result list: the value a
// listener returned, or the failure that replaced it. Fan-out failures are
// folded in as data rather than rejecting the emission.
type Result struct {
	// Value is the listener's return value on success.
	Value any

	// Err is the listener's failure, if any.
	Err error
}

// Pending is the settled-once future returned by Emit. It resolves with the
// aggregated result list once the emission has been fully processed, or with
// an error for middleware/queue-level failures.
type Pending struct {
	done    chan struct{}
	once    sync.Once
	results []Result
	err     error
}

// newPending creates an unsettled Pending.
func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// newSettledPending creates a Pending already settled with an error.
// Used when the emission fails before it is ever queued.
func newSettledPending(err error) *Pending {
	p := newPending()
	p.settle(nil, err)
	return p
}

// settle resolves the future. Only the first call has any effect.
func (p *Pending) settle(results []Result, err error) {
	p.once.Do(func() {
		p.results = results
		p.err = err
		close(p.done)
	})
}

// Done returns a channel closed when the emission has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the emission settles or the context is cancelled, then
// returns the aggregated result list. Per-listener failures do not produce
// an error here; they appear as Result entries with Err set.
func (p *Pending) Wait(ctx context.Context) ([]Result, error) {
	select {
	case <-p.done:
		return p.results, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
