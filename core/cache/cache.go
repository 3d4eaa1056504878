// Package cache provides LRU caching for parsed chapter documents.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/FocuswithJustin/Quill/core/chapter"
)

// Cache is a generic LRU cache.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Remove(key K)
	Clear()
	Len() int
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Size       int
	MaxSize    int
	TotalBytes int64
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// TTL is the time-to-live for entries (0 = no expiration).
	TTL time.Duration

	// OnEvict is called when an entry leaves the cache for any reason.
	OnEvict func(key, value interface{})
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{MaxSize: 64}
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// lruCache is a thread-safe LRU cache implementation.
type lruCache[K comparable, V any] struct {
	mu        sync.Mutex
	config    Config
	now       func() time.Time
	entries   map[K]*list.Element
	evictList *list.List
	stats     Stats
}

func newLRU[K comparable, V any](config Config) *lruCache[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	return &lruCache[K, V]{
		config:    config,
		now:       time.Now,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	e := ent.Value.(*entry[K, V])
	if c.config.TTL > 0 && c.now().After(e.expiresAt) {
		c.removeElement(ent)
		c.stats.Misses++
		return zero, false
	}
	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return e.value, true
}

func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*entry[K, V])
		e.value = value
		if c.config.TTL > 0 {
			e.expiresAt = c.now().Add(c.config.TTL)
		}
		return
	}

	e := &entry[K, V]{key: key, value: value}
	if c.config.TTL > 0 {
		e.expiresAt = c.now().Add(c.config.TTL)
	}
	c.entries[key] = c.evictList.PushFront(e)

	if c.config.MaxSize > 0 && c.evictList.Len() > c.config.MaxSize {
		c.removeOldest()
	}
}

func (c *lruCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
}

func (c *lruCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *lruCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.config.MaxSize
	return s
}

// oldest returns the least recently used key. Caller holds mu.
func (c *lruCache[K, V]) oldest() (K, bool) {
	ent := c.evictList.Back()
	if ent == nil {
		var zero K
		return zero, false
	}
	return ent.Value.(*entry[K, V]).key, true
}

func (c *lruCache[K, V]) removeOldest() {
	if ent := c.evictList.Back(); ent != nil {
		c.removeElement(ent)
		c.stats.Evictions++
	}
}

func (c *lruCache[K, V]) removeElement(ent *list.Element) {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry[K, V])
	delete(c.entries, e.key)
	if c.config.OnEvict != nil {
		c.config.OnEvict(e.key, e.value)
	}
}

// BoundedCache is an LRU cache that also caps the summed size of its values.
type BoundedCache[K comparable, V any] struct {
	lru      *lruCache[K, V]
	mu       sync.Mutex
	sizes    map[K]int64
	total    int64
	maxBytes int64
	sizeFunc func(V) int64
}

// NewBoundedCache creates a cache holding at most maxBytes as measured by
// sizeFunc. A value larger than maxBytes is not cached.
func NewBoundedCache[K comparable, V any](config Config, maxBytes int64, sizeFunc func(V) int64) *BoundedCache[K, V] {
	b := &BoundedCache[K, V]{
		sizes:    make(map[K]int64),
		maxBytes: maxBytes,
		sizeFunc: sizeFunc,
	}
	user := config.OnEvict
	config.OnEvict = func(key, value interface{}) {
		b.forget(key.(K))
		if user != nil {
			user(key, value)
		}
	}
	b.lru = newLRU[K, V](config)
	return b
}

func (b *BoundedCache[K, V]) forget(key K) {
	b.mu.Lock()
	b.total -= b.sizes[key]
	delete(b.sizes, key)
	b.mu.Unlock()
}

func (b *BoundedCache[K, V]) Get(key K) (V, bool) { return b.lru.Get(key) }

func (b *BoundedCache[K, V]) Put(key K, value V) {
	size := b.sizeFunc(value)
	if b.maxBytes > 0 && size > b.maxBytes {
		b.lru.Remove(key)
		return
	}
	b.lru.Put(key, value)

	b.mu.Lock()
	b.total += size - b.sizes[key]
	b.sizes[key] = size
	b.mu.Unlock()

	for b.maxBytes > 0 {
		b.mu.Lock()
		over := b.total > b.maxBytes
		b.mu.Unlock()
		if !over {
			return
		}
		b.lru.mu.Lock()
		k, ok := b.lru.oldest()
		if ok && k != key {
			b.lru.removeOldest()
		}
		b.lru.mu.Unlock()
		if !ok || k == key {
			return
		}
	}
}

func (b *BoundedCache[K, V]) Remove(key K) { b.lru.Remove(key) }

func (b *BoundedCache[K, V]) Clear() { b.lru.Clear() }

func (b *BoundedCache[K, V]) Len() int { return b.lru.Len() }

func (b *BoundedCache[K, V]) Stats() Stats {
	s := b.lru.Stats()
	b.mu.Lock()
	s.TotalBytes = b.total
	b.mu.Unlock()
	return s
}

// DocumentCache maps a content digest to the document parsed from it.
// Documents are values: callers must not modify what Get returns.
type DocumentCache struct {
	cache Cache[string, *chapter.Document]
}

// DefaultDocumentBytes bounds the summed source size of cached documents.
const DefaultDocumentBytes = 16 << 20

// NewDocumentCache creates a document cache.
func NewDocumentCache(config Config, maxBytes int64) *DocumentCache {
	return &DocumentCache{cache: NewBoundedCache[string, *chapter.Document](config, maxBytes, documentBytes)}
}

// NewDefaultDocumentCache creates a document cache with default limits.
func NewDefaultDocumentCache() *DocumentCache {
	return NewDocumentCache(DefaultConfig(), DefaultDocumentBytes)
}

func (c *DocumentCache) Get(digest string) (*chapter.Document, bool) { return c.cache.Get(digest) }

func (c *DocumentCache) Put(digest string, doc *chapter.Document) { c.cache.Put(digest, doc) }

func (c *DocumentCache) Remove(digest string) { c.cache.Remove(digest) }

func (c *DocumentCache) Clear() { c.cache.Clear() }

func (c *DocumentCache) Len() int { return c.cache.Len() }

func (c *DocumentCache) Stats() Stats { return c.cache.Stats() }

// documentBytes approximates a document's footprint by its source length.
func documentBytes(doc *chapter.Document) int64 {
	if doc == nil {
		return 0
	}
	return int64(len(doc.Serialize()))
}
