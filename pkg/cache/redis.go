package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisCache.
const DefaultRedisPrefix = "stipple:"

// RedisCache stores entries in Redis. Expiry is delegated to the server.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	backoff Backoff
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisPrefix replaces DefaultRedisPrefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithRedisBackoff sets the retry policy for connection failures.
func WithRedisBackoff(b Backoff) RedisOption {
	return func(c *RedisCache) { c.backoff = b }
}

// NewRedisCache connects lazily to the server named by a redis:// or
// rediss:// URL. No connection is made until the first command.
func NewRedisCache(url string, opts ...RedisOption) (*RedisCache, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCacheFromClient(redis.NewClient(o), opts...), nil
}

// NewRedisCacheFromClient wraps an existing client. Close closes the client.
func NewRedisCacheFromClient(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client:  client,
		prefix:  DefaultRedisPrefix,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return RetryWithBackoff(ctx, c.backoff, func() error {
		return transient(c.client.Ping(ctx).Err())
	})
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, c.backoff, func() error {
		var err error
		data, err = c.client.Get(ctx, c.key(key)).Bytes()
		return transient(err)
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in the cache.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return RetryWithBackoff(ctx, c.backoff, func() error {
		return transient(c.client.Set(ctx, c.key(key), data, ttl).Err())
	})
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return RetryWithBackoff(ctx, c.backoff, func() error {
		return transient(c.client.Del(ctx, c.key(key)).Err())
	})
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

var _ Cache = (*RedisCache)(nil)
