package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
}

func TestLRUCacheOverwrite(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	c.Set("a", "first")
	c.Set("a", "second")
	got, _ := c.Get("a")
	if got != "second" {
		t.Errorf("Get(a) = %q, want second", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	// Touch "a" so "b" becomes the least recently used.
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b survived eviction, want it dropped as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a was evicted despite recent use")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c missing after insert")
	}
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	// Negative TTL makes every entry already expired.
	c := NewLRUCache[int](10, -time.Second)

	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry served")
	}
	if c.Size() != 0 {
		t.Errorf("Size() after expired Get = %d, want 0", c.Size())
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second)

	c.Set("a", 1)
	c.Set("b", 2)
	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	c.Delete("never-existed")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry served")
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	c.Set("u:1:summary:month", 1)
	c.Set("u:1:trends", 2)
	c.Set("u:12:summary:month", 3)
	c.Set("u:2:summary:month", 4)

	c.DeletePrefix("u:1:")

	for _, key := range []string{"u:1:summary:month", "u:1:trends"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("key %q survived DeletePrefix", key)
		}
	}
	// The prefix must not swallow other users, including u:12.
	for _, key := range []string{"u:12:summary:month", "u:2:summary:month"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("key %q was dropped by an unrelated DeletePrefix", key)
		}
	}
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](100, time.Minute)
	done := make(chan struct{})

	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("u:%d:k%d", g, i)
				c.Set(key, i)
				c.Get(key)
				if i%10 == 0 {
					c.DeletePrefix(fmt.Sprintf("u:%d:", g))
				}
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}
}
