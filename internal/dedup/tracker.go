package dedup

import (
	"sync"
)

// Tracker holds the last accepted timestamp per topic.
type Tracker struct {
	mu       sync.Mutex
	lastSeen map[string]int64 // topic -> epoch ms
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{lastSeen: make(map[string]int64)}
}

// Accept reports whether a message on topic with the given epoch-ms timestamp
// is newer than everything accepted so far, and records it if so. Ties and
// regressions are rejected.
func (t *Tracker) Accept(topic string, tsMillis int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSeen[topic]
	if ok && tsMillis <= last {
		return false
	}
	t.lastSeen[topic] = tsMillis
	return true
}

// LastSeen returns the last accepted timestamp for topic.
func (t *Tracker) LastSeen(topic string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastSeen[topic]
	return ts, ok
}
