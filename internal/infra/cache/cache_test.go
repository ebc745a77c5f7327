package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/crm-bff-go/internal/infra/cache"
)

var ctx = context.Background()

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set(ctx, "key1", "value1")
	val, ok := c.Get(ctx, "key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get(ctx, "nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set(ctx, "key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get(ctx, "key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set(ctx, "key1", "value1")
	c.Delete(ctx, "key1")

	_, ok := c.Get(ctx, "key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set(ctx, "dashboard:EMPLOYEE:7:2025", 1)
	c.Set(ctx, "dashboard:EMPLOYEE:7:2024", 2)
	c.Set(ctx, "dashboard:EMPLOYEE:8:2025", 3)
	c.Set(ctx, "dashboard:MANAGER:2:2025", 4)

	c.DeletePrefix(ctx, "dashboard:EMPLOYEE:7:")

	if c.Len() != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "dashboard:EMPLOYEE:8:2025"); !ok {
		t.Error("expected other actor's entry to survive")
	}
}

func TestCache_CleanupEvictsExpired(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Close()

	c.Set(ctx, "key1", "value1")
	time.Sleep(80 * time.Millisecond)

	if c.Len() != 0 {
		t.Fatalf("expected cleanup to evict entry, %d left", c.Len())
	}
}
