package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/review_widget/internal/domain"
)

// RedisCache caches review lists and stats per partition.
//
// Entries live under a partition generation number. Writers bump the generation, so entries
// filed under an older generation are unreachable the moment the bump returns. Readers capture
// the generation before reading the store and file their result under it, so a result computed
// concurrently with a write can never be served after that write.
type RedisCache struct {
	client         *redis.Client
	reviewsListTTL time.Duration
	reviewStatsTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, reviewsListTTL, reviewStatsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		reviewsListTTL: reviewsListTTL,
		reviewStatsTTL: reviewStatsTTL,
	}
}

func partitionPrefix(p domain.Partition) string {
	return fmt.Sprintf("reviews:%s:%s", url.QueryEscape(p.Website), url.QueryEscape(p.ProductID))
}

func (c *RedisCache) generationKey(p domain.Partition) string {
	return partitionPrefix(p) + ":gen"
}

func (c *RedisCache) trackingKey(p domain.Partition) string {
	return partitionPrefix(p) + ":keys"
}

func (c *RedisCache) reviewsKey(q domain.ReviewQuery, gen int64) string {
	return fmt.Sprintf("%s:g%d:list:%s:%s", partitionPrefix(q.Partition), gen, q.FilterLabel(), q.Sort)
}

func (c *RedisCache) statsKey(p domain.Partition, gen int64) string {
	return fmt.Sprintf("%s:g%d:stats", partitionPrefix(p), gen)
}

// Generation returns the current generation of a partition; 0 if it was never written
func (c *RedisCache) Generation(ctx context.Context, p domain.Partition) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(p)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetReviews retrieves a cached review list; domain.ErrNotFound on miss
func (c *RedisCache) GetReviews(ctx context.Context, q domain.ReviewQuery, gen int64) ([]domain.Review, error) {
	val, err := c.client.Get(ctx, c.reviewsKey(q, gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var reviews []domain.Review
	if err := json.Unmarshal(val, &reviews); err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}

// SetReviews stores a review list under gen and tracks the key for cleanup
func (c *RedisCache) SetReviews(ctx context.Context, q domain.ReviewQuery, gen int64, reviews []domain.Review) error {
	data, err := json.Marshal(reviews)
	if err != nil {
		return err
	}
	return c.set(ctx, q.Partition, c.reviewsKey(q, gen), data, c.reviewsListTTL)
}

// GetStats retrieves cached stats; domain.ErrNotFound on miss
func (c *RedisCache) GetStats(ctx context.Context, p domain.Partition, gen int64) (*domain.ReviewStats, error) {
	val, err := c.client.Get(ctx, c.statsKey(p, gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var stats domain.ReviewStats
	if err := json.Unmarshal(val, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SetStats stores stats under gen and tracks the key for cleanup
func (c *RedisCache) SetStats(ctx context.Context, p domain.Partition, gen int64, stats domain.ReviewStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.set(ctx, p, c.statsKey(p, gen), data, c.reviewStatsTTL)
}

func (c *RedisCache) set(ctx context.Context, p domain.Partition, key string, data []byte, ttl time.Duration) error {
	trackingKey := c.trackingKey(p)

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, trackingKey, key)
	pipe.Expire(ctx, trackingKey, max(c.reviewsListTTL, c.reviewStatsTTL))
	_, err := pipe.Exec(ctx)
	return err
}

// InvalidatePartition bumps the partition generation, then unlinks the entries it knows about.
// Once the bump succeeds no earlier entry can be served; the unlink only reclaims memory.
func (c *RedisCache) InvalidatePartition(ctx context.Context, p domain.Partition) error {
	if err := c.client.Incr(ctx, c.generationKey(p)).Err(); err != nil {
		return fmt.Errorf("failed to bump partition generation: %w", err)
	}

	trackingKey := c.trackingKey(p)
	keys, err := c.client.SMembers(ctx, trackingKey).Result()
	if err != nil || len(keys) == 0 {
		return nil
	}

	keys = append(keys, trackingKey)
	_ = c.client.Unlink(ctx, keys...).Err()

	return nil
}
