package pulse

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the per-event history cap.
const DefaultHistoryLimit = 100

// HistoryEntry records a single past emission of an event.
type HistoryEntry struct {
	// ID is a unique identifier for this emission.
	ID string

	// Timestamp is when the event was emitted.
	Timestamp time.Time

	// Data is the payload after middleware transformation.
	Data any

	// ProcessingTime is how long the full listener pass took. It is zero
	// until the emission has been processed.
	ProcessingTime time.Duration
}

// EventHistory pairs an event name with its recorded emissions.
type EventHistory struct {
	// Event is the event name.
	Event string

	// Entries are the recorded emissions, newest first.
	Entries []HistoryEntry
}

// EventStats summarizes the recorded emissions of one event.
type EventStats struct {
	// TotalEmissions is the number of emissions still in history.
	TotalEmissions int

	// LastEmitted is the timestamp of the most recent emission.
	LastEmitted time.Time

	// ListenerCount is the current exact-match listener count.
	ListenerCount int

	// AverageProcessingTime is the mean processing time across history
	// entries; entries without a recorded time count as zero.
	AverageProcessingTime time.Duration
}

// historyStore is the bounded per-event log of past emissions.
// Entries are kept newest first and the oldest entry is evicted when an
// event's log exceeds the limit. It is safe for concurrent use.
type historyStore struct {
	mu      sync.RWMutex
	entries map[string][]*HistoryEntry
	order   []string // event names in first-emission order
	limit   int
}

// newHistoryStore creates a history store with the given per-event cap.
func newHistoryStore(limit int) *historyStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &historyStore{
		entries: make(map[string][]*HistoryEntry),
		limit:   limit,
	}
}

// record prepends a new entry for the event, evicting the oldest entry on
// overflow. The returned entry may later be completed with finish.
func (h *historyStore) record(event string, data any) *HistoryEntry {
	entry := &HistoryEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Data:      data,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.entries[event]; !ok {
		h.order = append(h.order, event)
	}

	entries := append([]*HistoryEntry{entry}, h.entries[event]...)
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	h.entries[event] = entries

	return entry
}

// finish records the processing time for an entry once its emission has been
// fully processed. Safe even if the entry was already evicted.
func (h *historyStore) finish(entry *HistoryEntry, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry.ProcessingTime = d
}

// history returns a copy of the event's entries, newest first.
func (h *historyStore) history(event string) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.copyLocked(event)
}

// all returns every event's history as (name, entries) pairs, in
// first-emission order.
func (h *historyStore) all() []EventHistory {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]EventHistory, 0, len(h.order))
	for _, event := range h.order {
		out = append(out, EventHistory{Event: event, Entries: h.copyLocked(event)})
	}
	return out
}

// copyLocked snapshots an event's entries. Caller holds mu.
func (h *historyStore) copyLocked(event string) []HistoryEntry {
	entries := h.entries[event]
	if len(entries) == 0 {
		return nil
	}
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}

// clear drops the recorded history for one event.
func (h *historyStore) clear(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.entries, event)
	for i, name := range h.order {
		if name == event {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// clearAll drops all recorded history.
func (h *historyStore) clearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = make(map[string][]*HistoryEntry)
	h.order = nil
}

// stats summarizes the recorded emissions for an event. The listener count
// is filled in by the bus.
func (h *historyStore) stats(event string) EventStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.entries[event]
	stats := EventStats{TotalEmissions: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	stats.LastEmitted = entries[0].Timestamp

	var total time.Duration
	for _, e := range entries {
		total += e.ProcessingTime
	}
	stats.AverageProcessingTime = total / time.Duration(len(entries))

	return stats
}
