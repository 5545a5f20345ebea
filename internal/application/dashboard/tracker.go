package dashboard

import "sync"

// readTracker hands out monotonically increasing request ids per key so a
// read that was superseded by a newer one for the same data can be detected
// and its result dropped instead of applied.  Stale reads are not errors;
// they are simply never applied.
type readTracker struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func newReadTracker() *readTracker {
	return &readTracker{latest: make(map[string]uint64)}
}

// begin issues the next request id for key and marks it as the latest.
func (t *readTracker) begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[key]++
	return t.latest[key]
}

// isLatest reports whether id is still the newest issued read for key.
func (t *readTracker) isLatest(key string, id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[key] == id
}
