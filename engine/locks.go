package engine

import "sync"

// sessionLocks serializes turns per (userID, sessionID) key. The lock is
// held from memory recall until extraction lands, so the next turn's recall
// always sees the previous turn's extracted memories. Entries are
// refcounted and removed when the last holder releases, keeping the map
// bounded by in-flight sessions.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*lockEntry)}
}

// acquire blocks until the key's lock is held and returns the release
// function. Release exactly once.
func (l *sessionLocks) acquire(userID, sessionID string) func() {
	key := userID + "\x00" + sessionID

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()
			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}
