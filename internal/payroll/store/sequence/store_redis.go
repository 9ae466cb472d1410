package sequence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for per-year reference counters
	sequenceKeyPrefix = "payroll:seq:"
)

// RedisAllocator is a Redis-backed sequence allocator. INCR is atomic
// server-side, so multiple engine instances can share one counter. This
// is the production-recommended allocator for distributed deployments.
type RedisAllocator struct {
	client *redis.Client
}

// NewRedisAllocator constructs a Redis-backed sequence allocator.
func NewRedisAllocator(client *redis.Client) *RedisAllocator {
	return &RedisAllocator{client: client}
}

// Next atomically increments and returns the year's counter. Keys start
// absent; the first INCR creates them at 1.
func (a *RedisAllocator) Next(ctx context.Context, year int) (int64, error) {
	key := sequenceKeyPrefix + strconv.Itoa(year)
	seq, err := a.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment payment sequence %s: %w", key, err)
	}
	return seq, nil
}
