package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis or skips. The integration build
// tag runs the same checks against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testBatch(page, size int) pagination.Batch {
	records := make([]pagination.Record, size)
	for i := range records {
		records[i] = pagination.Record{ID: pagination.FirstID(page, size) + i, BatchIndex: page}
	}
	return pagination.Batch{Page: page, Records: records}
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Source: "generator", Page: 3, Size: 10}

	if err := manager.Set(ctx, key, NewEntry(testBatch(3, 10), 5*time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.Batch.Page != 3 || len(retrieved.Batch.Records) != 10 {
		t.Errorf("Batch = page %d with %d records, want page 3 with 10", retrieved.Batch.Page, len(retrieved.Batch.Records))
	}
	if retrieved.Batch.Records[0].ID != 21 {
		t.Errorf("first ID = %d, want 21", retrieved.Batch.Records[0].ID)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	manager := NewManager(setupTestRedis(t))

	_, err := manager.Get(context.Background(), Key{Source: "generator", Page: 99, Size: 10})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := Key{Source: "generator", Page: 1, Size: 10}

	if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("raw set failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestManager_Set_ExpiredEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Source: "generator", Page: 1, Size: 10}

	if err := manager.Set(ctx, key, NewEntry(testBatch(1, 10), -time.Hour)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Source: "generator", Page: 1, Size: 10}

	if err := manager.Set(ctx, key, NewEntry(testBatch(1, 10), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Invalidate(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	for page := 1; page <= 3; page++ {
		if err := manager.Set(ctx, Key{Source: "a", Page: page, Size: 10}, NewEntry(testBatch(page, 10), time.Minute)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	other := Key{Source: "b", Page: 1, Size: 10}
	if err := manager.Set(ctx, other, NewEntry(testBatch(1, 10), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	deleted, err := manager.Invalidate(ctx, "a")
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Invalidate() deleted %d, want 3", deleted)
	}
	if _, err := manager.Get(ctx, other); err != nil {
		t.Errorf("other source evicted: %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t))

	if err := manager.Set(context.Background(), Key{Page: 1, Size: 1}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}
