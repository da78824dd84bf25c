package source

import (
	"context"
	"sync"
	"time"

	"github.com/flowscan/colligo"
)

// Configuration for the caching source wrapper
type CachedConfig struct {
	// The duration fetched entities keep being served from memory, set 0 to
	// keep them forever
	Retention time.Duration

	// How often expired entries are swept out, defaults to the retention
	SweepInterval time.Duration
}

type cachedEntry[TValue any] struct {
	value     TValue
	expiresAt time.Time
}

// Cached wraps a source with a short-lived in-memory cache so hot keys do
// not hit the backing store on every collection window. Only found entities
// are cached, absent keys are asked from the inner source again on the next
// dispatch
type Cached[TKey comparable, TValue any] struct {
	config   CachedConfig
	inner    colligo.Source[TKey, TValue]
	data     map[TKey]cachedEntry[TValue]
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// Create a caching wrapper around the given source
func NewCached[TKey comparable, TValue any](inner colligo.Source[TKey, TValue], config CachedConfig) *Cached[TKey, TValue] {
	c := &Cached[TKey, TValue]{
		config: config,
		inner:  inner,
		data:   make(map[TKey]cachedEntry[TValue]),
		stop:   make(chan struct{}),
	}
	if c.config.SweepInterval <= 0 {
		c.config.SweepInterval = c.config.Retention
	}
	if c.config.Retention > 0 {
		go c.startSweeper()
	}
	return c
}

// Unique identifier for this source used for logging and metric purposes
func (c *Cached[TKey, TValue]) Identifier() string {
	return c.inner.Identifier() + "-cached"
}

// Fetch the entities for the given keys, asking the inner source only for
// the keys with no live cache entry
func (c *Cached[TKey, TValue]) FetchByKeys(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	result := make(map[TKey]TValue, len(keys))
	missing := make([]TKey, 0, len(keys))
	now := time.Now()

	c.mu.RLock()
	for _, key := range keys {
		if entry, ok := c.data[key]; ok && (entry.expiresAt.IsZero() || now.Before(entry.expiresAt)) {
			result[key] = entry.value
		} else {
			missing = append(missing, key)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return result, nil
	}

	fetched, err := c.inner.FetchByKeys(ctx, missing)
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if c.config.Retention > 0 {
		expiresAt = time.Now().Add(c.config.Retention)
	}
	c.mu.Lock()
	for key, value := range fetched {
		result[key] = value
		c.data[key] = cachedEntry[TValue]{value: value, expiresAt: expiresAt}
	}
	c.mu.Unlock()

	return result, nil
}

// Invalidate drops the cache entry for the given key
func (c *Cached[TKey, TValue]) Invalidate(key TKey) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// Close stops the background sweeper
func (c *Cached[TKey, TValue]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// deletes expired records from the cache
func (c *Cached[TKey, TValue]) startSweeper() {
	for {
		select {
		case <-c.stop:
			return
		case <-time.After(c.config.SweepInterval):
		}

		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.data {
			if now.After(entry.expiresAt) {
				delete(c.data, key)
			}
		}
		c.mu.Unlock()
	}
}
