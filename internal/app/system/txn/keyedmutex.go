// Package txn serializes multi-document team updates. MongoDB
// transactions need a replica set, which local dev and the test
// environments do not guarantee, so membership commits run under a
// per-team mutex here plus the store's optimistic version check.
package txn

import "sync"

// KeyedMutex serializes operations on a single key (one team) without
// blocking operations on other keys. Entries are reference-counted and
// removed once the last holder unlocks, so the map does not grow with
// the number of teams ever touched.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

// Lock acquires the mutex for key, blocking until it is free. The
// returned func releases it.
func (km *KeyedMutex) Lock(key string) (unlock func()) {
	km.mu.Lock()
	e, ok := km.entries[key]
	if !ok {
		e = &keyedEntry{}
		km.entries[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.entries, key)
		}
		km.mu.Unlock()
	}
}
