package keyregistry

import (
	"sync"

	"securemail/internal/domain"
)

// keyedMutex hands out one mutex per username and forgets it once nobody
// holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[domain.Username]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until the lock for u is held and returns its release func.
func (k *keyedMutex) Lock(u domain.Username) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[domain.Username]*refMutex)
	}
	m, ok := k.locks[u]
	if !ok {
		m = new(refMutex)
		k.locks[u] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		defer k.mu.Unlock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, u)
		}
	}
}
