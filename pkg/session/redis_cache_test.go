package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

func setupMiniredis(t *testing.T) *RedisCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCacheFromClient(client, "test:", 0)

	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestRedisCache_ReplaceAndSnapshot(t *testing.T) {
	cache := setupMiniredis(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	summaries := []api.SessionSummary{
		{ID: "s1", Title: "Older", UpdatedAt: now.Add(-time.Hour)},
		{ID: "s2", Title: "Newer", UpdatedAt: now},
	}

	if err := cache.Replace(ctx, summaries); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(got))
	}
	if got[0].ID != "s2" {
		t.Errorf("Snapshot()[0].ID = %s, want s2 (most recently updated first)", got[0].ID)
	}
}

func TestRedisCache_ReplaceDropsStaleEntries(t *testing.T) {
	cache := setupMiniredis(t)
	ctx := context.Background()

	if err := cache.Replace(ctx, []api.SessionSummary{{ID: "old"}}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := cache.Replace(ctx, []api.SessionSummary{{ID: "new"}}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Snapshot() = %v, want only the new entry", got)
	}
}

func TestRedisCache_RemoveReturnsEntryForRestore(t *testing.T) {
	cache := setupMiniredis(t)
	ctx := context.Background()

	if err := cache.Upsert(ctx, api.SessionSummary{ID: "s1", Title: "Pointers"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	removed, err := cache.Remove(ctx, "s1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if removed == nil || removed.Title != "Pointers" {
		t.Fatalf("Remove() = %v, want removed entry back", removed)
	}

	// Unknown id is not an error.
	removed, err = cache.Remove(ctx, "missing")
	if err != nil {
		t.Fatalf("Remove(missing) error = %v", err)
	}
	if removed != nil {
		t.Errorf("Remove(missing) = %v, want nil", removed)
	}
}

func TestRedisCache_ClosedCacheErrors(t *testing.T) {
	cache := setupMiniredis(t)
	_ = cache.Close()

	if _, err := cache.Snapshot(context.Background()); err != ErrCacheClosed {
		t.Errorf("Snapshot() after Close error = %v, want ErrCacheClosed", err)
	}
}
