package verify

import "sync"

// keyedMutex serializes work per string key. Linking the same marketplace
// account from two Discord identities at once must not interleave the
// revoke/link/grant sequence.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// matching unlock func. Lock entries are kept for the process lifetime; the
// key space is bounded by the number of distinct marketplace accounts seen.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
