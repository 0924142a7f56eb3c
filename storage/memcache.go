package storage

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache is a generic in-memory cache with TTL support. A TTL of 0
// means entries never expire and no sweeper goroutine is started.
type MemoryCache[K comparable, V any] struct {
	entries   map[K]cacheEntry[V]
	ttl       time.Duration
	mutex     sync.RWMutex
	stopSweep chan struct{}
	sweepDone sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryCache creates a new MemoryCache instance
func NewMemoryCache[K comparable, V any](ttl time.Duration) *MemoryCache[K, V] {
	cache := &MemoryCache[K, V]{
		entries:   make(map[K]cacheEntry[V]),
		ttl:       ttl,
		stopSweep: make(chan struct{}),
	}
	if ttl > 0 {
		cache.sweepDone.Add(1)
		go cache.sweep()
	}
	return cache
}

// Get retrieves an item from the cache with whether it was found and unexpired
func (cache *MemoryCache[K, V]) Get(key K) (V, bool) {
	cache.mutex.RLock()
	entry, ok := cache.entries[key]
	cache.mutex.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if cache.ttl > 0 && time.Now().After(entry.expiresAt) {
		cache.Delete(key)
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set adds or replaces an item in the cache resetting its expiry
func (cache *MemoryCache[K, V]) Set(key K, value V) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries[key] = cacheEntry[V]{value: value, expiresAt: time.Now().Add(cache.ttl)}
}

// Delete removes an item from the cache
func (cache *MemoryCache[K, V]) Delete(key K) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	delete(cache.entries, key)
}

// sweep periodically evicts expired entries so an idle cache does not grow unbounded
func (cache *MemoryCache[K, V]) sweep() {
	defer cache.sweepDone.Done()
	ticker := time.NewTicker(cache.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			cache.mutex.Lock()
			for key, entry := range cache.entries {
				if now.After(entry.expiresAt) {
					delete(cache.entries, key)
				}
			}
			cache.mutex.Unlock()
		case <-cache.stopSweep:
			return
		}
	}
}

// Close stops the sweeper goroutine if one was started
func (cache *MemoryCache[K, V]) Close() {
	cache.closeOnce.Do(func() {
		if cache.ttl > 0 {
			close(cache.stopSweep)
			cache.sweepDone.Wait()
		}
	})
}
