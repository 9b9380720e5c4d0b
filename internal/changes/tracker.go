// Package changes implements the change counter used for cheap polling.
package changes

import "sync"

// Tracker counts mutations and remembers, per caller, the last count it observed.
// The counter is 64-bit; wrapping is not a practical concern.
type Tracker struct {
	mu       sync.Mutex
	count    uint64
	lastSeen map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{lastSeen: make(map[string]uint64)}
}

// Bump records a mutation.
func (t *Tracker) Bump() {
	t.mu.Lock()
	t.count++
	t.mu.Unlock()
}

// Count returns the current counter value.
func (t *Tracker) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.count
}

// Changed reports whether anything changed since caller last asked. The first call
// for a caller always returns true and records the baseline.
func (t *Tracker) Changed(caller string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastSeen[caller]
	if ok && last == t.count {
		return false
	}

	t.lastSeen[caller] = t.count
	return true
}

// Forget drops the caller's baseline.
func (t *Tracker) Forget(caller string) {
	t.mu.Lock()
	delete(t.lastSeen, caller)
	t.mu.Unlock()
}
