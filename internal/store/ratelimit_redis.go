package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimitRedisStore is a Redis-backed implementation of ratelimit.Store,
// selected over RateLimitMemoryStore when the process runs with more than
// one replica so every replica shares the same counters (spec §4.1).
// Each (key, window) pair is a sorted set keyed by request timestamp: a
// sliding window is maintained by trimming entries older than the window
// on every call, mirroring RateLimitMemoryStore's prune-then-append
// semantics but shared across processes via Redis instead of a local map.
type RateLimitRedisStore struct {
	client *redis.Client
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{client: client}
}

func (s *RateLimitRedisStore) Record(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := "ratelimit:" + key
	now := time.Now()
	cutoff := now.Add(-window)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%d", cutoff.UnixNano()))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record rate limit entry: %w", err)
	}

	return count.Val(), nil
}
