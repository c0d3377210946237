package cache

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryCacheGetPut(t *testing.T) {
	c := NewMemoryCache(1024)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}
	if err := c.Put("a", []byte("hello")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	v, ok := c.Get("a")
	if !ok || !bytes.Equal(v, []byte("hello")) {
		t.Errorf("Get(a) = %q, %v", v, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Items != 1 || stats.Size != 5 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(10)

	_ = c.Put("a", make([]byte, 4))
	_ = c.Put("b", make([]byte, 4))
	c.Get("a") // b is now least recently used
	_ = c.Put("c", make([]byte, 4))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestMemoryCacheReplace(t *testing.T) {
	c := NewMemoryCache(10)
	_ = c.Put("a", make([]byte, 8))
	_ = c.Put("a", make([]byte, 2))

	if got := c.Stats().Size; got != 2 {
		t.Errorf("Size = %d, want 2", got)
	}
	c.Delete("a")
	if got := c.Stats().Items; got != 0 {
		t.Errorf("Items = %d, want 0", got)
	}
}

func TestMemoryCacheTooLarge(t *testing.T) {
	c := NewMemoryCache(4)
	if err := c.Put("a", make([]byte, 5)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}
