package cache

import (
	"container/list"
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/webstudio/sitekit/core/logger"
)

// EvictReason describes why an entry left the cache without an explicit Delete.
type EvictReason string

const (
	EvictReasonLRU     EvictReason = "lru"
	EvictReasonExpired EvictReason = "expired"
)

// EvictCallback is invoked for entries removed by LRU eviction or expiry.
type EvictCallback[V any] func(key string, value V, reason EvictReason)

// entry is the value stored in the recency list elements.
// The key is kept here because eviction starts from list nodes.
type entry[V any] struct {
	key            string
	value          V
	storedAt       time.Time
	ttl            time.Duration
	accessCount    uint64
	lastAccessedAt time.Time
	tags           []string
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

type evicted[V any] struct {
	key    string
	value  V
	reason EvictReason
}

// Memory is a concurrency-safe in-memory cache with TTL, LRU eviction and statistics.
//
// A map gives O(1) key lookup and a doubly-linked list keeps recency order,
// so the back of the list is always the entry with the oldest last access.
//
// Memory owns its sweep goroutine. Call Close to stop it.
type Memory[V any] struct {
	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // Front = most recently accessed, Back = least recently accessed
	stats Stats

	maxSize         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	enableStats     bool
	logger          *slog.Logger
	now             func() time.Time
	onEvict         EvictCallback[V]

	flight singleflight.Group

	// Sweep goroutine ownership.
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	closed  bool
}

// NewMemory creates a cache with default configuration adjusted by opts
// and starts the background sweep when a cleanup interval is set.
func NewMemory[V any](opts ...Option) *Memory[V] {
	return NewMemoryFromConfig[V](DefaultConfig(), opts...)
}

// NewMemoryFromConfig creates a cache from cfg. Options override config values.
// A non-positive DefaultTTL falls back to DefaultTTL.
func NewMemoryFromConfig[V any](cfg Config, opts ...Option) *Memory[V] {
	o := defaultOptions(cfg)
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg.DefaultTTL <= 0 {
		o.cfg.DefaultTTL = DefaultTTL
	}

	c := &Memory[V]{
		items:           make(map[string]*list.Element),
		order:           list.New(),
		maxSize:         o.cfg.MaxSize,
		defaultTTL:      o.cfg.DefaultTTL,
		cleanupInterval: o.cfg.CleanupInterval,
		enableStats:     o.cfg.EnableStats,
		logger:          o.logger,
		now:             o.now,
	}

	if c.cleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.running.Store(true)
		c.wg.Add(1)
		go c.sweepLoop(ctx)
	}

	return c
}

// SetEvictCallback registers fn to be called for entries removed by LRU eviction
// or expiry. The callback runs outside the cache lock.
func (c *Memory[V]) SetEvictCallback(fn EvictCallback[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Set stores value under key with the default TTL.
func (c *Memory[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. A non-positive ttl means the default TTL.
//
// When the cache is full and key is new, the least recently accessed entry is
// evicted first.
func (c *Memory[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.set(key, value, ttl, nil)
}

// SetWithTags stores value under key and records tags as entry metadata so the
// entry can later be removed with InvalidateByTags. The key itself is unchanged.
func (c *Memory[V]) SetWithTags(key string, value V, tags []string, ttl time.Duration) {
	c.set(key, value, ttl, slices.Clone(tags))
}

func (c *Memory[V]) set(key string, value V, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	now := c.now()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.storedAt = now
		e.ttl = ttl
		e.accessCount = 0
		e.lastAccessedAt = now
		e.tags = tags
		c.order.MoveToFront(el)
		if c.enableStats {
			c.stats.Sets++
		}
		c.mu.Unlock()
		return
	}

	var out []evicted[V]
	if c.maxSize > 0 && len(c.items) >= c.maxSize {
		if ev, ok := c.evictOldestLocked(); ok {
			out = append(out, ev)
		}
	}

	c.items[key] = c.order.PushFront(&entry[V]{
		key:            key,
		value:          value,
		storedAt:       now,
		ttl:            ttl,
		lastAccessedAt: now,
		tags:           tags,
	})
	if c.enableStats {
		c.stats.Sets++
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	notify(onEvict, out)
}

// Get returns the live value stored under key.
// Expired entries are removed on access and reported as a miss.
func (c *Memory[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		if c.enableStats {
			c.stats.Misses++
		}
		c.mu.Unlock()
		return zero, false
	}

	now := c.now()
	e := el.Value.(*entry[V])
	if e.expired(now) {
		ev := c.expireLocked(el)
		if c.enableStats {
			c.stats.Misses++
		}
		onEvict := c.onEvict
		c.mu.Unlock()
		notify(onEvict, []evicted[V]{ev})
		return zero, false
	}

	e.accessCount++
	e.lastAccessedAt = now
	c.order.MoveToFront(el)
	if c.enableStats {
		c.stats.Hits++
	}
	value := e.value
	c.mu.Unlock()
	return value, true
}

// Has reports whether key holds a live entry without counting a hit or miss
// and without changing its recency. Expired entries are removed.
func (c *Memory[V]) Has(key string) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false
	}

	if !el.Value.(*entry[V]).expired(c.now()) {
		c.mu.Unlock()
		return true
	}

	ev := c.expireLocked(el)
	onEvict := c.onEvict
	c.mu.Unlock()
	notify(onEvict, []evicted[V]{ev})
	return false
}

// Delete removes key and reports whether an entry was removed.
func (c *Memory[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(el)
	if c.enableStats {
		c.stats.Deletes++
	}
	return true
}

// Clear removes all entries. Cumulative counters are kept.
func (c *Memory[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Keys returns all tracked keys in most to least recently accessed order.
// Expired entries not yet swept are included.
func (c *Memory[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry[V]).key)
	}
	return out
}

// KeysByTags returns the keys of entries tagged with any of tags.
func (c *Memory[V]) KeysByTags(tags ...string) []string {
	if len(tags) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		for _, t := range e.tags {
			if slices.Contains(tags, t) {
				out = append(out, e.key)
				break
			}
		}
	}
	return out
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops the background sweep and clears the table.
//
// Close is safe to call multiple times.
func (c *Memory[V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	// Cancel outside the lock so an in-progress sweep can finish.
	if cancel != nil {
		cancel()
		c.wg.Wait()
	}

	c.Clear()
	c.logger.Info("cache closed", logger.Component("cache"))
	return nil
}

// Healthcheck reports an error when the sweep is configured but not running.
// Suitable for readiness probes.
func (c *Memory[V]) Healthcheck(ctx context.Context) error {
	if c.cleanupInterval > 0 && !c.running.Load() {
		return ErrSweepNotRunning
	}
	return nil
}

// evictOldestLocked removes the least recently accessed entry.
func (c *Memory[V]) evictOldestLocked() (evicted[V], bool) {
	el := c.order.Back()
	if el == nil {
		return evicted[V]{}, false
	}
	e := el.Value.(*entry[V])
	c.removeLocked(el)
	if c.enableStats {
		c.stats.Evictions++
	}
	return evicted[V]{key: e.key, value: e.value, reason: EvictReasonLRU}, true
}

// expireLocked removes an expired entry and counts the eviction.
func (c *Memory[V]) expireLocked(el *list.Element) evicted[V] {
	e := el.Value.(*entry[V])
	c.removeLocked(el)
	if c.enableStats {
		c.stats.Evictions++
	}
	return evicted[V]{key: e.key, value: e.value, reason: EvictReasonExpired}
}

func (c *Memory[V]) removeLocked(el *list.Element) {
	delete(c.items, el.Value.(*entry[V]).key)
	c.order.Remove(el)
}

func notify[V any](fn EvictCallback[V], evs []evicted[V]) {
	if fn == nil {
		return
	}
	for _, ev := range evs {
		fn(ev.key, ev.value, ev.reason)
	}
}
