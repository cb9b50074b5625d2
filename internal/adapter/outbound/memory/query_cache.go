package memory

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
)

// DefaultQueryCacheSize is the default entry cap for QueryCache.
const DefaultQueryCacheSize = 500

// DefaultQueryCacheTTL is the default entry lifetime for QueryCache: short,
// since records on the hub can change between queries.
const DefaultQueryCacheTTL = 30 * time.Second

// queryCacheEntry mirrors llmCacheEntry's doubly-linked LRU node shape,
// swapped to carry a QueryResult instead of a semantic assessment.
type queryCacheEntry struct {
	key      string
	value    mdh.QueryResult
	storedAt time.Time
	prev     *queryCacheEntry
	next     *queryCacheEntry
}

// QueryCache provides bounded, TTL-expiring LRU caching for executed
// canonical queries, keyed by a content hash of the query shape. Grounded
// on LLMCache's structure (itself adapted from the teacher's CEL
// ResultCache), reused here so DataRetrieval avoids re-hitting the hub for
// an identical query issued twice in quick succession.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*queryCacheEntry
	head    *queryCacheEntry
	tail    *queryCacheEntry
	maxSize int
	ttl     time.Duration
}

// NewQueryCache creates a QueryCache with the given capacity and TTL.
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = DefaultQueryCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultQueryCacheTTL
	}
	return &QueryCache{
		entries: make(map[string]*queryCacheEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// HashQuery derives a deterministic cache key from a canonical query's
// fingerprint string (callers build the fingerprint; see
// service.FingerprintQuery).
func HashQuery(fingerprint string) string {
	h := xxhash.New()
	_, _ = h.WriteString(fingerprint)
	return strconv.FormatUint(h.Sum64(), 16)
}

// Get retrieves a cached query result. Returns (zero, false) on miss or on
// a TTL-expired hit; an expired hit is evicted immediately.
func (c *QueryCache) Get(key string) (mdh.QueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return mdh.QueryResult{}, false
	}
	if time.Since(e.storedAt) > c.ttl {
		c.unlinkLocked(e)
		delete(c.entries, key)
		return mdh.QueryResult{}, false
	}
	c.moveToHeadLocked(e)
	return e.value, true
}

// Set stores value under key, evicting the least-recently-used entry if at
// capacity.
func (c *QueryCache) Set(key string, value mdh.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = time.Now()
		c.moveToHeadLocked(e)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}

	e := &queryCacheEntry{key: key, value: value, storedAt: time.Now()}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Size returns the current cache size, for tests.
func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) moveToHeadLocked(e *queryCacheEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *QueryCache) pushHeadLocked(e *queryCacheEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *QueryCache) unlinkLocked(e *queryCacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *QueryCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}
