// Package query is the single gateway between the client and the network:
// every cached resource is fetched through a Cache key, so callers never
// talk to the backend directly for cacheable data.
package query

import (
	"context"
	"sync"
	"time"
)

// Cache provides in-memory caching with per-key staleness windows and
// request collapsing: while a fetch for a key is outstanding, every other
// caller for that key waits on the same result instead of issuing its own
// network call.
//
// Each key also carries a generation counter. Invalidating a key bumps its
// generation, so a fetch that was already in flight when the invalidation
// happened still delivers its result to its own waiters but is never stored.
// A superseded response can therefore not overwrite fresher state regardless
// of completion order.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	inflight  map[string]*inflightFetch
	gens      map[string]uint64
	done      chan struct{}
	closeOnce sync.Once
}

type cacheEntry struct {
	value      any
	fetchedAt  time.Time
	staleAfter time.Time
}

type inflightFetch struct {
	done  chan struct{}
	value any
	err   error
}

// New creates a Cache and starts its background sweep of expired entries.
func New() *Cache {
	c := &Cache{
		entries:  make(map[string]*cacheEntry),
		inflight: make(map[string]*inflightFetch),
		gens:     make(map[string]uint64),
		done:     make(chan struct{}),
	}

	go c.sweep()

	return c
}

// Close stops the background sweep goroutine.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Get returns the cached value for key if one exists and is younger than
// staleWindow, otherwise runs fetch exactly once (collapsing concurrent
// callers) and caches a successful result. The boolean reports a cache hit.
//
// Errors are surfaced to every waiter and never cached; the next Get for the
// key fetches again.
func (c *Cache) Get(ctx context.Context, key string, staleWindow time.Duration, fetch func(context.Context) (any, error)) (any, bool, error) {
	c.mu.Lock()

	if entry, ok := c.entries[key]; ok && time.Now().Before(entry.staleAfter) {
		c.mu.Unlock()
		return entry.value, true, nil
	}

	if inflight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-inflight.done:
			return inflight.value, false, inflight.err
		case <-ctx.Done():
			return nil, false, context.Cause(ctx)
		}
	}

	inflight := &inflightFetch{done: make(chan struct{})}
	c.inflight[key] = inflight
	gen := c.gens[key]
	c.mu.Unlock()

	// Fetch outside of the lock.
	value, err := fetch(ctx)

	c.mu.Lock()
	inflight.value = value
	inflight.err = err
	if err == nil && value != nil && c.gens[key] == gen {
		now := time.Now()
		c.entries[key] = &cacheEntry{
			value:      value,
			fetchedAt:  now,
			staleAfter: now.Add(staleWindow),
		}
	}
	delete(c.inflight, key)
	c.mu.Unlock()

	close(inflight.done)

	return value, false, err
}

// Invalidate drops the entry for key and marks any in-flight fetch for it as
// superseded, so the next Get is guaranteed to hit the network.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
}

// Clear drops every cached entry and supersedes every in-flight fetch.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	for key := range c.inflight {
		c.gens[key]++
	}
	c.mu.Unlock()
}

// Len reports the number of cached entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep periodically removes stale entries and forgets generation counters
// for keys that no longer have an entry or an in-flight fetch.
func (c *Cache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.staleAfter) {
					delete(c.entries, key)
				}
			}
			for key := range c.gens {
				if _, live := c.entries[key]; live {
					continue
				}
				if _, live := c.inflight[key]; live {
					continue
				}
				delete(c.gens, key)
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Fetch is the typed convenience wrapper over Cache.Get.
func Fetch[T any](ctx context.Context, c *Cache, key string, staleWindow time.Duration, fetch func(context.Context) (T, error)) (T, bool, error) {
	value, hit, err := c.Get(ctx, key, staleWindow, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil || value == nil {
		var zero T
		return zero, hit, err
	}
	return value.(T), hit, nil
}
