// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"notify-engine/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the connection serving the route/preference cache.
// Timeouts are tight on purpose: a slow cache must degrade to the backing
// store, never slow a dispatch cycle down.
type RedisClient struct {
	client *redis.Client
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	return &RedisClient{client: rdb}, nil
}

// Ping verifies the connection at startup; cache reads afterwards tolerate
// redis being down.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Client exposes the raw client for the caching store.
func (c *RedisClient) Client() *redis.Client {
	return c.client
}
