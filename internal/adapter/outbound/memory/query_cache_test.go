package memory

import (
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/mdh"
)

func TestQueryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := NewQueryCache(10, time.Hour)
	want := mdh.QueryResult{TotalReturned: 3}

	cache.Set("key-1", want)
	got, ok := cache.Get("key-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.TotalReturned != want.TotalReturned {
		t.Errorf("TotalReturned = %v, want %v", got.TotalReturned, want.TotalReturned)
	}
}

func TestQueryCache_Miss(t *testing.T) {
	t.Parallel()

	cache := NewQueryCache(10, time.Hour)
	_, ok := cache.Get("missing")
	if ok {
		t.Error("expected cache miss")
	}
}

func TestQueryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := NewQueryCache(2, time.Hour)
	cache.Set("a", mdh.QueryResult{TotalReturned: 1})
	cache.Set("b", mdh.QueryResult{TotalReturned: 2})

	cache.Get("a")
	cache.Set("c", mdh.QueryResult{TotalReturned: 3})

	if _, ok := cache.Get("b"); ok {
		t.Error("expected 'b' to be evicted as least recently used")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("expected 'a' to survive eviction")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Error("expected 'c' to be present")
	}
}

func TestQueryCache_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	cache := NewQueryCache(10, 10*time.Millisecond)
	cache.Set("key", mdh.QueryResult{TotalReturned: 5})

	time.Sleep(30 * time.Millisecond)

	_, ok := cache.Get("key")
	if ok {
		t.Error("expected expired entry to be a miss")
	}
	if cache.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after expired entry evicted on read", cache.Size())
	}
}

func TestHashQuery_Deterministic(t *testing.T) {
	t.Parallel()

	h1 := HashQuery("Advertisements|ADVERTISER=acme")
	h2 := HashQuery("Advertisements|ADVERTISER=acme")
	if h1 != h2 {
		t.Error("expected identical fingerprints to hash identically")
	}

	h3 := HashQuery("Advertisements|ADVERTISER=other")
	if h1 == h3 {
		t.Error("expected different fingerprints to hash differently")
	}
}
