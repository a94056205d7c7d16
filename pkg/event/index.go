package event

import (
	"iter"
	"sync"
)

// Index is an insertion-ordered mapping from event id to event. Iteration
// order is arrival order, forever: events are never re-sorted by content,
// timestamp, or id. Re-recording an id updates the stored event in place
// without moving its position.
type Index struct {
	mu     sync.RWMutex
	order  []string
	events map[string]*Event
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{events: make(map[string]*Event)}
}

// Record stores ev under its id, appending it to the iteration order on first
// sight. Events without an id are ignored.
func (x *Index) Record(ev *Event) {
	if ev == nil || ev.ID == "" {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, seen := x.events[ev.ID]; !seen {
		x.order = append(x.order, ev.ID)
	}
	x.events[ev.ID] = ev
}

// Get returns the event recorded under id.
func (x *Index) Get(id string) (*Event, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ev, ok := x.events[id]
	return ev, ok
}

// IndexOf returns the arrival position of id.
func (x *Index) IndexOf(id string) (int, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for i, k := range x.order {
		if k == id {
			return i, true
		}
	}
	return 0, false
}

// IDAt returns the id recorded at arrival position i.
func (x *Index) IDAt(i int) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if i < 0 || i >= len(x.order) {
		return "", false
	}
	return x.order[i], true
}

// Len returns the number of recorded events.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

// All iterates events in arrival order.
func (x *Index) All() iter.Seq[*Event] {
	x.mu.RLock()
	snapshot := make([]*Event, 0, len(x.order))
	for _, id := range x.order {
		snapshot = append(snapshot, x.events[id])
	}
	x.mu.RUnlock()
	return func(yield func(*Event) bool) {
		for _, ev := range snapshot {
			if !yield(ev) {
				return
			}
		}
	}
}

// Reset drops all recorded events.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.order = nil
	x.events = make(map[string]*Event)
}
