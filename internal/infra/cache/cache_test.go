package cache_test

import (
	"testing"
	"time"

	"github.com/guloona/storefront-bff-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_TouchExtendsTTL(t *testing.T) {
	c := cache.New[string](80 * time.Millisecond)
	defer c.Stop()

	c.Set("key1", "value1")
	time.Sleep(50 * time.Millisecond)
	if !c.Touch("key1") {
		t.Fatal("expected touch to find live key")
	}
	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected touched key to still be live")
	}
}

func TestCache_OnEvictRunsOnDelete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Stop()

	var evicted []string
	c.OnEvict(func(key, _ string) {
		evicted = append(evicted, key)
	})

	c.Set("key1", "value1")
	c.Delete("key1")
	c.Delete("missing")

	if len(evicted) != 1 || evicted[0] != "key1" {
		t.Errorf("expected [key1] evicted, got %v", evicted)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_RangeSkipsExpired(t *testing.T) {
	c := cache.New[int](50 * time.Millisecond)
	defer c.Stop()

	c.Set("old", 1)
	time.Sleep(80 * time.Millisecond)
	c.Set("a", 2)
	c.Set("b", 3)

	seen := map[string]int{}
	c.Range(func(k string, v int) { seen[k] = v })

	if len(seen) != 2 || seen["a"] != 2 || seen["b"] != 3 {
		t.Errorf("expected only live entries, got %v", seen)
	}
}
