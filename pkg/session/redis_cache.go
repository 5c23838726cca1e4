package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

// ErrCacheClosed is returned when operating on a closed cache.
var ErrCacheClosed = errors.New("summary cache is closed")

// RedisCache implements SummaryCache on Redis, so the last known
// session listing survives process restarts and is shared between
// clients of the same user.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration for the cache.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix (default: "tutorchat:summary:").
	Prefix string
	// TTL is the cache entry expiry (0 = never expire).
	TTL time.Duration
}

// NewRedisCache connects to Redis and returns a summary cache.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisCacheFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisCacheFromClient wraps an existing client. Useful for testing
// with miniredis.
func NewRedisCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "tutorchat:summary:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) entryKey(sessionID string) string { return c.prefix + "entry:" + sessionID }
func (c *RedisCache) indexKey() string                 { return c.prefix + "index" }

func (c *RedisCache) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrCacheClosed
	}
	return nil
}

func (c *RedisCache) Snapshot(ctx context.Context) ([]api.SessionSummary, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	ids, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list cached summaries: %w", err)
	}

	summaries := make([]api.SessionSummary, 0, len(ids))
	for _, id := range ids {
		data, err := c.client.Get(ctx, c.entryKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Entry expired out from under the index.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load cached summary %s: %w", id, err)
		}
		var s api.SessionSummary
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode cached summary %s: %w", id, err)
		}
		summaries = append(summaries, s)
	}

	sortSummaries(summaries)
	return summaries, nil
}

func (c *RedisCache) Replace(ctx context.Context, summaries []api.SessionSummary) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	// Drop stale entries first, then write the new listing.
	oldIDs, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("read cache index: %w", err)
	}

	pipe := c.client.TxPipeline()
	for _, id := range oldIDs {
		pipe.Del(ctx, c.entryKey(id))
	}
	pipe.Del(ctx, c.indexKey())
	for _, s := range summaries {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode summary %s: %w", s.ID, err)
		}
		pipe.Set(ctx, c.entryKey(s.ID), data, c.ttl)
		pipe.SAdd(ctx, c.indexKey(), s.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace cached summaries: %w", err)
	}
	return nil
}

func (c *RedisCache) Upsert(ctx context.Context, summary api.SessionSummary) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary %s: %w", summary.ID, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.entryKey(summary.ID), data, c.ttl)
	pipe.SAdd(ctx, c.indexKey(), summary.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert cached summary: %w", err)
	}
	return nil
}

func (c *RedisCache) Remove(ctx context.Context, sessionID string) (*api.SessionSummary, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, c.entryKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached summary %s: %w", sessionID, err)
	}

	var s api.SessionSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode cached summary %s: %w", sessionID, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.entryKey(sessionID))
	pipe.SRem(ctx, c.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("remove cached summary: %w", err)
	}
	return &s, nil
}

func (c *RedisCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}
