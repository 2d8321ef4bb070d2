package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Item is a live key/value pair returned by Items.
type Item[V any] struct {
	Key       string
	Value     V
	ExpiresAt time.Time
}

// Cache is a concurrency-safe expiring map keyed by lower-cased strings.
type Cache[V any] struct {
	mutex sync.RWMutex
	items map[string]entry[V]
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used to evaluate expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		items: make(map[string]entry[V]),
		now:   o.now,
	}
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Set stores value under key. A new entry expires ttl from now; an entry that
// is still live keeps its existing deadline and only has its value replaced.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	key = normalize(key)
	if key == "" {
		return
	}

	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if e, ok := c.items[key]; ok && now.Before(e.expiresAt) {
		e.value = value
		c.items[key] = e
		return
	}

	c.items[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
}

// Get returns the live value stored under key.
func (c *Cache[V]) Get(key string) (V, bool) {
	key = normalize(key)
	now := c.now()

	c.mutex.RLock()
	e, ok := c.items[key]
	c.mutex.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}

	if !now.Before(e.expiresAt) {
		c.mutex.Lock()
		// Re-check: the entry may have been replaced since the read lock was released.
		if cur, ok := c.items[key]; ok && !now.Before(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mutex.Unlock()

		var zero V
		return zero, false
	}

	return e.value, true
}

// ExpiresAt returns the deadline of the live entry stored under key.
func (c *Cache[V]) ExpiresAt(key string) (time.Time, bool) {
	key = normalize(key)

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Remove deletes key and returns the value it held, if it was live.
func (c *Cache[V]) Remove(key string) (V, bool) {
	key = normalize(key)
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(c.items, key)

	if !now.Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Items returns the live entries sorted by key.
func (c *Cache[V]) Items() []Item[V] {
	now := c.now()

	c.mutex.RLock()
	items := make([]Item[V], 0, len(c.items))
	for k, e := range c.items {
		if now.Before(e.expiresAt) {
			items = append(items, Item[V]{Key: k, Value: e.value, ExpiresAt: e.expiresAt})
		}
	}
	c.mutex.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	now := c.now()

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	n := 0
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Purge drops every expired entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// StartJanitor purges expired entries every interval until ctx is done.
func (c *Cache[V]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Purge()
			}
		}
	}()
}
