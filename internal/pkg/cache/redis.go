package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/pkg/retry"
)

// Options maps the Redis config onto client options. Commands fail fast with no
// client-side retries; the partition cache treats a failed command as a bypass.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		MaxRetries:   -1,
	}
}

// NewRedisClient creates a Redis client and verifies it with PING
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(Options(cfg))

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// WaitForRedis connects to Redis, retrying under policy while it is not reachable yet
func WaitForRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger, policy retry.Policy) (*redis.Client, error) {
	client, err := retry.Do(ctx, policy, log, "redis", func(ctx context.Context) (*redis.Client, error) {
		return NewRedisClient(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	log.With("addr", client.Options().Addr).Info("Connected to Redis")
	return client, nil
}
