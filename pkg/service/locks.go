package service

import (
	"context"
	"sync"
)

/*
keyedMutex serialises work per key. The map lock is only held for
bookkeeping, never while a key is held, so unrelated keys do not wait on
each other. Entries are dropped once nobody holds or waits for them.
*/
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

/*
Lock blocks until key is free or ctx is done. The returned unlock function
may be called from any goroutine, and more than once.
*/
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()

	entry, ok := k.locks[key]

	if !ok {
		entry = &keyedEntry{sem: make(chan struct{}, 1)}
		k.locks[key] = entry
	}

	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-entry.sem
			k.release(key, entry)
		})
	}, nil
}

func (k *keyedMutex) release(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry.refs--

	if entry.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
