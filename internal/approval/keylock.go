package approval

import "sync"

// keyedMutex serializes work per request id. The sheet's read-then-write
// update is not atomic, so concurrent decision callbacks for the same id
// must queue behind each other to keep transitions at-most-once.
//
// Entries are never evicted; the map is bounded by the number of distinct
// request ids this process has decided on.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
