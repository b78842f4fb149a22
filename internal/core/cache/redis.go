package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"meal-analysis-api/internal/infrastructure/config"
)

// RedisTier is the shared cache tier in front of the in-memory store,
// useful when several replicas serve the same corpus.
type RedisTier struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewRedisTier connects to Redis and verifies the connection.
func NewRedisTier(cfg *config.CacheConfig) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTier{
		client: client,
		config: cfg,
	}, nil
}

// Get returns the cached value for key.
func (t *RedisTier) Get(ctx context.Context, key string) (string, error) {
	val, err := t.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("cache miss")
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	return val, nil
}

// Set stores value under key with the configured TTL.
func (t *RedisTier) Set(ctx context.Context, key, value string) error {
	if err := t.client.Set(ctx, key, value, t.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (t *RedisTier) Close() error {
	return t.client.Close()
}
