package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func skipIfNoRedis(t *testing.T) {
	if os.Getenv("REDIS_TEST_ADDR") == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}
}

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()

	opts := &Options{
		Backend:       "redis",
		RedisAddr:     os.Getenv("REDIS_TEST_ADDR"),
		RedisPassword: os.Getenv("REDIS_TEST_PASSWORD"),
		RedisDB:       0,
		DefaultTTL:    time.Minute,
	}

	cache, err := NewRedisCache(opts)
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	return cache
}

func TestRedisCache_SetGet(t *testing.T) {
	skipIfNoRedis(t)

	cache := newTestRedisCache(t)
	defer cache.Close()

	ctx := context.Background()

	err := cache.Set(ctx, "test-key", []byte("test-value"), time.Minute)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	val, err := cache.Get(ctx, "test-key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(val) != "test-value" {
		t.Errorf("Get() = %s, want test-value", string(val))
	}

	// Cleanup
	cache.Delete(ctx, "test-key")
}

func TestRedisCache_NotFound(t *testing.T) {
	skipIfNoRedis(t)

	cache := newTestRedisCache(t)
	defer cache.Close()

	_, err := cache.Get(context.Background(), "nonexistent-key")
	if err != ErrKeyNotFound {
		t.Errorf("Get() error = %v, want ErrKeyNotFound", err)
	}
}

func TestRedisCache_DeleteByPattern(t *testing.T) {
	skipIfNoRedis(t)

	cache := newTestRedisCache(t)
	defer cache.Close()

	ctx := context.Background()

	cache.Set(ctx, "plan:aaa", []byte("1"), time.Minute)
	cache.Set(ctx, "plan:bbb", []byte("2"), time.Minute)
	cache.Set(ctx, "run:ccc", []byte("3"), time.Minute)
	defer cache.Delete(ctx, "run:ccc")

	count, err := cache.DeleteByPattern(ctx, "plan:*")
	if err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByPattern() = %d, want 2", count)
	}

	exists, _ := cache.Exists(ctx, "run:ccc")
	if !exists {
		t.Error("run:ccc should survive plan:* deletion")
	}
}
