package ws

import (
	"sync"
	"time"
)

// A reconnecting dashboard only needs the state changes it missed during a
// short network drop; anything older is answered with a reset.
const (
	defaultBufferMaxLen = 100
	defaultBufferMaxAge = 10 * time.Minute
)

// EventBuffer is a fixed-size ring of recent state events, oldest first.
type EventBuffer struct {
	mu     sync.RWMutex
	ring   []Event
	head   int
	n      int
	maxAge time.Duration
}

// NewEventBuffer holds at most maxLen events, none older than maxAge.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	return &EventBuffer{
		ring:   make([]Event, max(maxLen, 1)),
		maxAge: maxAge,
	}
}

func (eb *EventBuffer) at(i int) *Event {
	return &eb.ring[(eb.head+i)%len(eb.ring)]
}

// expire drops events older than maxAge. Callers hold the write lock.
func (eb *EventBuffer) expire(now time.Time) {
	cutoff := now.Add(-eb.maxAge)
	for eb.n > 0 && eb.at(0).Time.Before(cutoff) {
		*eb.at(0) = Event{}
		eb.head = (eb.head + 1) % len(eb.ring)
		eb.n--
	}
}

// Append adds evt, overwriting the oldest event when the ring is full.
func (eb *EventBuffer) Append(evt Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.expire(time.Now())

	if eb.n == len(eb.ring) {
		eb.ring[eb.head] = evt
		eb.head = (eb.head + 1) % len(eb.ring)
		return
	}

	*eb.at(eb.n) = evt
	eb.n++
}

// Since returns buffered events with ID > lastEventID, oldest first, or nil.
func (eb *EventBuffer) Since(lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	var out []Event
	for i := range eb.n {
		if e := eb.at(i); e.ID > lastEventID {
			out = append(out, *e)
		}
	}

	return out
}

// Latest returns the newest buffered event.
func (eb *EventBuffer) Latest() (Event, bool) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.n == 0 {
		return Event{}, false
	}

	return *eb.at(eb.n - 1), true
}

// OldestID is the ID of the oldest buffered event, 0 when empty.
func (eb *EventBuffer) OldestID() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.n == 0 {
		return 0
	}

	return eb.at(0).ID
}
