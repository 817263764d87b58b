package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bus owns the Redis connection behind the event stream.
type Bus struct {
	client *redis.Client
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, redisURL string) (*Bus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Bus{client: client}, nil
}

// Ping checks Redis connectivity.
func (b *Bus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}

// Client returns the underlying Redis client for publishers and workers.
func (b *Bus) Client() *redis.Client {
	return b.client
}
