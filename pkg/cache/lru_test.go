package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func newTestLRU(size int, ttl time.Duration) (*LRUCache, *stepClock) {
	clk := &stepClock{t: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	c := NewLRUCache(size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{"SetAndGet", testSetAndGet},
		{"GetMiss", testGetMiss},
		{"GetExpired", testGetExpired},
		{"EvictsLeastRecentlyUsed", testEvictsLeastRecentlyUsed},
		{"InvalidateRemovesEntry", testInvalidateRemovesEntry},
		{"InvalidateAllClearsCache", testInvalidateAllClearsCache},
		{"SetUpdatesExisting", testSetUpdatesExisting},
		{"ConcurrentAccess", testConcurrentAccess},
		{"StatsCountLookups", testStatsCountLookups},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func testSetAndGet(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("/stages", []byte(`[]`), "application/json")

	got, ct, ok := c.Get("/stages")
	if !ok {
		t.Fatal("expected cache hit, got miss")
	}
	if string(got) != "[]" || ct != "application/json" {
		t.Fatalf("unexpected entry %q %q", got, ct)
	}
}

func testGetMiss(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	if got, _, ok := c.Get("nonexistent"); ok || got != nil {
		t.Fatalf("expected miss, got %q", got)
	}
}

func testGetExpired(t *testing.T) {
	c, clk := newTestLRU(10, time.Minute)
	c.Set("k", []byte("v"), "")

	clk.t = clk.t.Add(59 * time.Second)
	if _, _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	clk.t = clk.t.Add(2 * time.Second)
	if _, _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not dropped, size %d", c.Size())
	}
}

func testEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", []byte("1"), "")
	c.Set("b", []byte("2"), "")
	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Set("c", []byte("3"), "")

	if _, _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, _, ok := c.Get(k); !ok {
			t.Fatalf("expected %s to remain", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", s.Evictions)
	}
}

func testInvalidateRemovesEntry(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("a", []byte("1"), "")
	c.Set("b", []byte("2"), "")
	c.Invalidate("a")
	c.Invalidate("missing")

	if _, _, ok := c.Get("a"); ok {
		t.Fatal("expected a to be removed")
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func testInvalidateAllClearsCache(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), []byte("v"), "")
	}
	c.InvalidateAll()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
	c.Set("k0", []byte("v"), "")
	if c.Size() != 1 {
		t.Fatal("cache unusable after InvalidateAll")
	}
}

func testSetUpdatesExisting(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("k", []byte("old"), "")
	c.Set("k", []byte("new"), "text/plain")

	got, ct, _ := c.Get("k")
	if string(got) != "new" || ct != "text/plain" {
		t.Fatalf("expected updated entry, got %q %q", got, ct)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func testConcurrentAccess(t *testing.T) {
	c := NewLRUCache(50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (n*j)%80)
				c.Set(key, []byte("v"), "")
				c.Get(key)
				if j%25 == 0 {
					c.Invalidate(key)
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Size() > 50 {
		t.Fatalf("size %d exceeds max", c.Size())
	}
}

func testStatsCountLookups(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("k", []byte("v"), "")
	c.Get("k")
	c.Get("k")
	c.Get("other")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
