package cache

import (
	"testing"
	"time"
)

func TestCacheSetGetFlush(t *testing.T) {
	c := New[int](time.Minute, time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit a=1, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
	c.Flush()
	if c.Size() != 0 {
		t.Fatalf("expected empty cache after flush, got %d", c.Size())
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New[string](20*time.Millisecond, time.Hour)
	c.Set("k", "v")
	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache[int]
	c.Set("a", 1)
	c.Flush()
	if _, ok := c.Get("a"); ok || c.Size() != 0 {
		t.Fatalf("nil cache should behave as always empty")
	}
}
