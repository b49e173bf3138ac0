// Redis-backed L2 snapshot cache, sitting in front of the on-disk JSON
// snapshot so a crawl restart on a fresh machine (or a second process
// sharing the same Redis) can warm-start without waiting on disk I/O.
// Grounded on go_job's internal/engine/cache.go L1 sync.Map + L2 Redis
// tiering, repurposed here from a per-query search-result cache to a
// whole-Snapshot cache keyed by persistence root.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotCache mirrors a persistence root's Snapshot into Redis under
// a TTL, so Save/Load can race ahead of (or substitute for)
// the local JSON files.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache builds a cache against addr (host:port). ttl <= 0
// means the cached snapshot never expires.
func NewRedisSnapshotCache(addr string, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Close releases the underlying Redis connection pool.
func (c *RedisSnapshotCache) Close() error { return c.client.Close() }

func snapshotKey(root string) string { return "crawler:snapshot:" + root }

// Save stores snap under root, overwriting any previous value.
func (c *RedisSnapshotCache) Save(ctx context.Context, root string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot for redis: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(root), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

// Load fetches the snapshot for root. ok is false if no snapshot is cached
// (a cache miss, not an error — callers fall back to the on-disk snapshot).
func (c *RedisSnapshotCache) Load(ctx context.Context, root string) (snap Snapshot, ok bool, err error) {
	data, err := c.client.Get(ctx, snapshotKey(root)).Bytes()
	if err == redis.Nil {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("store: redis get: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("store: unmarshal cached snapshot: %w", err)
	}
	return snap, true, nil
}
