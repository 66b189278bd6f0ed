package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore holds the Redis client used for delivery dedupe. It is only
// built in processing mode.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to redisURL and pings it once, so a bad REDIS_URL fails
// the bootstrap instead of the first webhook.
func NewRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	rs := &RedisStore{client: redis.NewClient(opts)}
	if err := rs.Ping(ctx); err != nil {
		rs.client.Close()
		return nil, err
	}

	return rs, nil
}

// Ping verifies that Redis is reachable. It backs the readiness check.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Client exposes the underlying client for the dedupe claims.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
