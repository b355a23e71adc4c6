package cache

import (
	"fmt"
	"sync"
	"testing"

	"mercator-hq/formula/pkg/formula/ast"
)

func literal(f float64) ast.Node {
	return &ast.Literal{Value: ast.Number(f), ValuePos: 0}
}

func newCache(t *testing.T, config Config) *Cache {
	t.Helper()
	c, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestCache_GetAdd(t *testing.T) {
	c := newCache(t, Config{Capacity: 4})

	if _, ok := c.Get("1 + 2"); ok {
		t.Fatal("Get() on empty cache returned ok")
	}

	root := literal(3)
	if got := c.Add("1 + 2", root); got != root {
		t.Errorf("Add() returned a different tree")
	}

	got, ok := c.Get("  1 + 2\n")
	if !ok {
		t.Fatal("Get() with surrounding whitespace missed")
	}
	if got != root {
		t.Error("Get() returned a different tree")
	}

	if _, ok := c.Get("1+2"); ok {
		t.Error("inner whitespace must not be normalized")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 2 || stats.Size != 1 || stats.Capacity != 4 {
		t.Errorf("Stats() = %+v, want hits 1, misses 2, size 1, capacity 4", stats)
	}
	if rate := stats.HitRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("HitRate() = %v, want ~0.333", rate)
	}
}

func TestCache_AddKeepsExisting(t *testing.T) {
	c := newCache(t, Config{Capacity: 4})

	first := literal(1)
	second := literal(1)
	c.Add("x", first)
	if got := c.Add(" x ", second); got != first {
		t.Error("Add() on an existing key should return the cached tree")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_Eviction(t *testing.T) {
	var evictedKeys []string
	c := newCache(t, Config{
		Capacity: 2,
		OnEvict:  func(key string) { evictedKeys = append(evictedKeys, key) },
	})

	c.Add("a", literal(1))
	c.Add("b", literal(2))
	c.Get("a") // b is now least recently used
	c.Add("c", literal(3))

	if _, ok := c.Entry("b"); ok {
		t.Error("least recently used entry was not evicted")
	}
	if _, ok := c.Entry("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if len(evictedKeys) != 1 || evictedKeys[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evictedKeys)
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestCache_EntryMetadata(t *testing.T) {
	c := newCache(t, Config{Capacity: 2})
	c.Add("x + 1", literal(1))

	for i := 0; i < 3; i++ {
		c.Get("x + 1")
	}

	e, ok := c.Entry("x + 1")
	if !ok {
		t.Fatal("Entry() missed")
	}
	if e.Key != "x + 1" {
		t.Errorf("Key = %q, want %q", e.Key, "x + 1")
	}
	if e.Hits() != 3 {
		t.Errorf("Hits() = %d, want 3", e.Hits())
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}

	// Entry does not count as a hit.
	if got := c.Stats().Hits; got != 3 {
		t.Errorf("Stats().Hits = %d, want 3", got)
	}
}

func TestCache_Purge(t *testing.T) {
	c := newCache(t, Config{Capacity: 4})
	c.Add("a", literal(1))
	c.Add("b", literal(2))

	c.Purge()

	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", c.Len())
	}
	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("Evictions after Purge = %d, want 0", got)
	}
}

func TestCache_Disabled(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			c := newCache(t, Config{Capacity: capacity})
			if c.Enabled() {
				t.Error("Enabled() = true, want false")
			}

			root := literal(1)
			if got := c.Add("x", root); got != root {
				t.Error("Add() on disabled cache should return its argument")
			}
			if _, ok := c.Get("x"); ok {
				t.Error("disabled cache returned a hit")
			}
			if _, ok := c.Entry("x"); ok {
				t.Error("disabled cache returned an entry")
			}
			c.Purge()

			stats := c.Stats()
			if stats.Misses != 1 || stats.Size != 0 || stats.Capacity != 0 {
				t.Errorf("Stats() = %+v", stats)
			}
		})
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := newCache(t, Config{Capacity: 16})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("x + %d", i%32)
				if _, ok := c.Get(key); !ok {
					c.Add(key, literal(float64(i)))
				}
			}
		}(g)
	}
	wg.Wait()

	stats := c.Stats()
	if stats.Hits+stats.Misses != 8*200 {
		t.Errorf("hits+misses = %d, want %d", stats.Hits+stats.Misses, 8*200)
	}
	if c.Len() > 16 {
		t.Errorf("Len() = %d, exceeds capacity 16", c.Len())
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a + b", "a + b"},
		{"  a + b  ", "a + b"},
		{"\ta+b\n", "a+b"},
		{"a  +  b", "a  +  b"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
