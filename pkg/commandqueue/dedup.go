package commandqueue

import (
	"context"
	"sync"
	"time"
)

const defaultDedupTTL = 5 * time.Minute

// dedupEntry stores cached result for idempotency
type dedupEntry struct {
	result    Result
	timestamp time.Time
}

// dedupCache remembers task results by request ID for a bounded time so a
// redelivered Telegram update does not convert the same files twice.
type dedupCache struct {
	entries map[string]*dedupEntry
	ttl     time.Duration
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// newDedupCache creates a new deduplication cache
func newDedupCache(ctx context.Context, ttl time.Duration) *dedupCache {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}

	ctx, cancel := context.WithCancel(ctx)
	cache := &dedupCache{
		entries: make(map[string]*dedupEntry),
		ttl:     ttl,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func (dc *dedupCache) Stop() {
	if dc.cancel != nil {
		dc.cancel()
	}
}

// Get retrieves a cached result if it exists and is not expired
func (dc *dedupCache) Get(requestID string) (Result, bool) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	entry, exists := dc.entries[requestID]
	if !exists {
		return Result{}, false
	}

	if time.Since(entry.timestamp) > dc.ttl {
		return Result{}, false
	}

	return entry.result, true
}

// Set stores a result in the cache
func (dc *dedupCache) Set(requestID string, result Result) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.entries[requestID] = &dedupEntry{
		result:    result,
		timestamp: time.Now(),
	}
}

// cleanup periodically removes expired entries
func (dc *dedupCache) cleanup() {
	defer close(dc.done)

	interval := dc.ttl
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-dc.ctx.Done():
			return
		case <-ticker.C:
			dc.evictExpired(time.Now())
		}
	}
}

func (dc *dedupCache) evictExpired(now time.Time) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	for requestID, entry := range dc.entries {
		if now.Sub(entry.timestamp) > dc.ttl {
			delete(dc.entries, requestID)
		}
	}
}

// Size returns the number of entries in the cache
func (dc *dedupCache) Size() int {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return len(dc.entries)
}

// Clear removes all entries from the cache
func (dc *dedupCache) Clear() {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.entries = make(map[string]*dedupEntry)
}
