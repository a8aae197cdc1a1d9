package pulse

import (
	"context"
	"sync"
)

// Middleware transforms an event payload before it is recorded and delivered.
// Middlewares run left to right in registration order; each one's output
// feeds the next one's input. A middleware error aborts the entire emission.
type Middleware func(ctx context.Context, event string, data any) (any, error)

// pipeline is the ordered, append-only middleware list.
type pipeline struct {
	mu  sync.RWMutex
	fns []Middleware
}

// use appends a middleware. The list has no removal operation.
func (p *pipeline) use(fn Middleware) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fns = append(p.fns, fn)
}

// apply folds the payload through all registered middlewares in order.
// The first failure aborts: no partial application is delivered.
func (p *pipeline) apply(ctx context.Context, event string, data any) (any, error) {
	p.mu.RLock()
	fns := make([]Middleware, len(p.fns))
	copy(fns, p.fns)
	p.mu.RUnlock()

	var err error
	for _, fn := range fns {
		data, err = fn(ctx, event, data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
