// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/semantic"
)

// DefaultLLMCacheSize is the default entry cap for LLMCache
const DefaultLLMCacheSize = 1000

// DefaultLLMCacheTTL is the default entry lifetime for LLMCache
const DefaultLLMCacheTTL = time.Hour

// llmCacheEntry is a doubly-linked list node for the LRU cache, adapted
// from the teacher's CEL ResultCache to additionally carry a storedAt
// timestamp for TTL expiry.
type llmCacheEntry struct {
	key       string
	value     semantic.CombinedAssessment
	storedAt  time.Time
	prev      *llmCacheEntry
	next      *llmCacheEntry
}

// LLMCache provides bounded, TTL-expiring LRU caching for hybrid semantic
// assessments, keyed by content hash. Thread-safe with Mutex (both Get and
// Set mutate LRU order). Grounded on the teacher's CEL evaluation
// ResultCache (internal/service/policy_service.go), generalized with a
// per-entry TTL since advisory LLM assessments go stale as threat patterns
// evolve, unlike a policy's compiled CEL result.
type LLMCache struct {
	mu      sync.Mutex
	entries map[string]*llmCacheEntry
	head    *llmCacheEntry
	tail    *llmCacheEntry
	maxSize int
	ttl     time.Duration
}

// NewLLMCache creates an LLMCache with the given capacity and TTL.
func NewLLMCache(maxSize int, ttl time.Duration) *LLMCache {
	if maxSize <= 0 {
		maxSize = DefaultLLMCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultLLMCacheTTL
	}
	return &LLMCache{
		entries: make(map[string]*llmCacheEntry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// HashContent derives the cache key for a piece of analyzed content.
func HashContent(content string) string {
	h := xxhash.New()
	_, _ = h.WriteString(content)
	return strconv.FormatUint(h.Sum64(), 16)
}

// Get retrieves a cached assessment. Returns (zero, false) on miss or on a
// TTL-expired hit; an expired hit is evicted immediately.
func (c *LLMCache) Get(key string) (semantic.CombinedAssessment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return semantic.CombinedAssessment{}, false
	}
	if time.Since(e.storedAt) > c.ttl {
		c.unlinkLocked(e)
		delete(c.entries, key)
		return semantic.CombinedAssessment{}, false
	}
	c.moveToHeadLocked(e)
	return e.value, true
}

// Set stores value under key, evicting the least-recently-used entry if at
// capacity.
func (c *LLMCache) Set(key string, value semantic.CombinedAssessment) {
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

	e := &llmCacheEntry{key: key, value: value, storedAt: time.Now()}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Size returns the current cache size, for tests.
func (c *LLMCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LLMCache) moveToHeadLocked(e *llmCacheEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *LLMCache) pushHeadLocked(e *llmCacheEntry) {
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

func (c *LLMCache) unlinkLocked(e *llmCacheEntry) {
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

func (c *LLMCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// Compile-time interface verification.
var _ semantic.Cache = (*LLMCache)(nil)
