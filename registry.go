package pulse

import (
	"sort"
	"sync"

	"github.com/pulsekit/pulse/topic"
)

// registry owns the exact-name and wildcard listener sets.
// A listener lives in exactly one of the two sets, chosen at subscribe time
// by the Pattern flag. It is safe for concurrent use.
type registry struct {
	mu       sync.RWMutex
	exact    map[string][]*listener
	patterns map[string][]*listener
	byID     map[string]*listener
	matcher  *topic.Matcher
}

// newRegistry creates an empty registry.
func newRegistry() *registry {
	return &registry{
		exact:    make(map[string][]*listener),
		patterns: make(map[string][]*listener),
		byID:     make(map[string]*listener),
		matcher:  topic.NewMatcher(),
	}
}

// add files a listener under its owning set.
func (r *registry) add(l *listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.cfg.Pattern {
		r.patterns[l.event] = append(r.patterns[l.event], l)
		r.matcher.Add(topic.Topic(l.event))
	} else {
		r.exact[l.event] = append(r.exact[l.event], l)
	}
	r.byID[l.id] = l
}

// remove removes a single listener by ID. It is idempotent.
func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return false
	}
	r.removeLocked(l)
	return true
}

// removeLocked detaches a listener from its owning set. Caller holds mu.
func (r *registry) removeLocked(l *listener) {
	owning := r.exact
	if l.cfg.Pattern {
		owning = r.patterns
	}

	set := owning[l.event]
	for i, cand := range set {
		if cand.id == l.id {
			owning[l.event] = append(set[:i], set[i+1:]...)
			break
		}
	}
	if len(owning[l.event]) == 0 {
		delete(owning, l.event)
		if l.cfg.Pattern {
			r.matcher.Remove(topic.Topic(l.event))
		}
	}

	delete(r.byID, l.id)
}

// removeByCallback removes every listener filed under name whose callback
// matches fnPtr by function identity. Both the exact and wildcard entries
// for the name are searched.
func (r *registry) removeByCallback(name string, fnPtr uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, set := range [][]*listener{r.exact[name], r.patterns[name]} {
		// Snapshot: removeLocked mutates the underlying slice.
		victims := make([]*listener, 0, len(set))
		for _, l := range set {
			if l.fnPtr == fnPtr {
				victims = append(victims, l)
			}
		}
		for _, l := range victims {
			r.removeLocked(l)
			removed++
		}
	}
	return removed
}

// removeAllFor removes the entire entry for name: every listener under it,
// in both the exact and wildcard mappings.
func (r *registry) removeAllFor(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, l := range r.exact[name] {
		delete(r.byID, l.id)
		removed++
	}
	delete(r.exact, name)

	for _, l := range r.patterns[name] {
		delete(r.byID, l.id)
		removed++
	}
	if _, ok := r.patterns[name]; ok {
		delete(r.patterns, name)
		r.matcher.Remove(topic.Topic(name))
	}
	return removed
}

// clearExact clears the exact registry only. Wildcard subscriptions survive;
// that asymmetry is part of the contract (see Bus.RemoveAllListeners).
func (r *registry) clearExact() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, set := range r.exact {
		for _, l := range set {
			delete(r.byID, l.id)
		}
	}
	r.exact = make(map[string][]*listener)
}

// events returns the exact-registered event names, sorted. Wildcard entries
// are excluded.
func (r *registry) events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.exact))
	for name := range r.exact {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// count returns the exact-set size for name.
func (r *registry) count(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.exact[name])
}

// match resolves the exact listeners for name plus the listeners of every
// wildcard pattern matching it, deduplicated by identity and sorted by
// priority descending. Ties keep subscription order (stable sort).
// The returned slice is a snapshot safe to iterate while listeners are
// being removed.
func (r *registry) match(name string) []*listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*listener
	seen := make(map[string]struct{})

	for _, l := range r.exact[name] {
		if _, dup := seen[l.id]; dup {
			continue
		}
		seen[l.id] = struct{}{}
		all = append(all, l)
	}

	for _, pattern := range r.matcher.Match(topic.Topic(name)) {
		for _, l := range r.patterns[pattern.String()] {
			if _, dup := seen[l.id]; dup {
				continue
			}
			seen[l.id] = struct{}{}
			all = append(all, l)
		}
	}

	if len(all) == 0 {
		return nil
	}

	// Higher priority first; the stable sort keeps the merged insertion
	// order (exact listeners, then wildcard matches) for equal priorities.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].cfg.Priority > all[j].cfg.Priority
	})

	return all
}

// size returns the total number of registered listeners.
func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
