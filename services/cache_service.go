package services

import (
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// IsExpired checks if the cache entry has expired at the given instant
func (ce *CacheEntry) IsExpired(now time.Time) bool {
	return !now.Before(ce.ExpiresAt)
}

// RecordCache is an in-memory TTL cache with a bounded size.
// When full, the entry closest to expiry is evicted first. A background
// sweeper removes expired entries until Close is called.
type RecordCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	defaultTTL time.Duration
	maxSize    int
	clock      shared.Clock
	metrics    *shared.ServiceMetrics

	stop      chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// NewRecordCache creates a cache using the cache section of the configuration.
func NewRecordCache(cfg shared.CacheConfig, clock shared.Clock) *RecordCache {
	return NewRecordCacheWithSweep(cfg, clock, 5*time.Minute)
}

// NewRecordCacheWithSweep creates a cache whose sweeper runs at the given interval.
// A non-positive interval disables the sweeper.
func NewRecordCacheWithSweep(cfg shared.CacheConfig, clock shared.Clock, sweepInterval time.Duration) *RecordCache {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}

	rc := &RecordCache{
		cache:      make(map[string]*CacheEntry),
		defaultTTL: cfg.DefaultTTL,
		maxSize:    cfg.MaxSize,
		clock:      clock,
		metrics:    shared.NewServiceMetrics("RecordCache"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	if sweepInterval > 0 {
		go rc.sweepExpired(sweepInterval)
	} else {
		close(rc.done)
	}

	return rc
}

// Get retrieves a value from cache
func (rc *RecordCache) Get(key string) (interface{}, bool) {
	rc.mutex.RLock()
	entry, exists := rc.cache[key]
	rc.mutex.RUnlock()

	if !exists || entry.IsExpired(rc.clock.Now()) {
		rc.metrics.IncrementCustomCounter("misses")
		return nil, false
	}

	rc.metrics.IncrementCustomCounter("hits")
	return entry.Data, true
}

// Set stores a value in cache with default TTL
func (rc *RecordCache) Set(key string, value interface{}) {
	rc.SetWithTTL(key, value, rc.defaultTTL)
}

// SetWithTTL stores a value in cache with custom TTL
func (rc *RecordCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if _, exists := rc.cache[key]; !exists && len(rc.cache) >= rc.maxSize {
		rc.evictOldest()
	}

	rc.cache[key] = &CacheEntry{
		Data:      value,
		ExpiresAt: rc.clock.Now().Add(ttl),
	}
}

// evictOldest removes the entry that expires first. Caller holds the lock.
func (rc *RecordCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range rc.cache {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestTime) ||
			(entry.ExpiresAt.Equal(oldestTime) && key < oldestKey) {
			oldestKey = key
			oldestTime = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(rc.cache, oldestKey)
		rc.metrics.IncrementCustomCounter("evictions")
	}
}

// Invalidate removes a single key.
func (rc *RecordCache) Invalidate(key string) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	delete(rc.cache, key)
}

// InvalidateAll removes every entry.
func (rc *RecordCache) InvalidateAll() {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	rc.cache = make(map[string]*CacheEntry)
	rc.metrics.IncrementCustomCounter("invalidations")
}

// Size returns the number of items in cache, expired ones included
func (rc *RecordCache) Size() int {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	return len(rc.cache)
}

// Metrics exposes hit/miss counters.
func (rc *RecordCache) Metrics() *shared.ServiceMetrics {
	return rc.metrics
}

// RemoveExpired deletes every expired entry and returns how many were removed.
func (rc *RecordCache) RemoveExpired() int {
	now := rc.clock.Now()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	removed := 0
	for key, entry := range rc.cache {
		if entry.IsExpired(now) {
			delete(rc.cache, key)
			removed++
		}
	}
	return removed
}

// Close stops the sweeper. Safe to call more than once.
func (rc *RecordCache) Close() {
	rc.closeOnce.Do(func() {
		close(rc.stop)
	})
	<-rc.done
}

func (rc *RecordCache) sweepExpired(interval time.Duration) {
	defer close(rc.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rc.stop:
			return
		case <-ticker.C:
			if removed := rc.RemoveExpired(); removed > 0 {
				logrus.WithFields(logrus.Fields{
					"component": "record_cache",
					"removed":   removed,
				}).Debug("Removed expired cache entries")
			}
		}
	}
}
