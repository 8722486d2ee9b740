package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis with native expiry.
type RedisCache struct {
	client   redis.UniversalClient
	prefix   string
	attempts int
	delay    time.Duration
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithKeyPrefix namespaces every key, e.g. "boothplan:".
func WithKeyPrefix(p string) RedisOption { return func(c *RedisCache) { c.prefix = p } }

// WithRetry sets how often network failures are retried and the first
// backoff delay.
func WithRetry(attempts int, delay time.Duration) RedisOption {
	return func(c *RedisCache) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.delay = delay
	}
}

// NewRedisCache wraps an existing client. Close closes the client.
func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) *RedisCache {
	c := &RedisCache{client: client, attempts: 3, delay: 50 * time.Millisecond}
	for _, o := range opts {
		o(c)
	}
	return c
}

// DialRedis parses a redis:// URL, pings the server and returns a cache on
// top of it.
func DialRedis(ctx context.Context, url string, opts ...RedisOption) (*RedisCache, error) {
	ro, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return NewRedisCache(client, opts...), nil
}

// Client exposes the underlying client so other components (run locks) can
// share the connection pool.
func (c *RedisCache) Client() redis.UniversalClient { return c.client }

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := retry(ctx, c.attempts, c.delay, func() error {
		var err error
		data, err = c.client.Get(ctx, c.prefix+key).Bytes()
		return classify(err)
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return retry(ctx, c.attempts, c.delay, func() error {
		return classify(c.client.Set(ctx, c.prefix+key, data, ttl).Err())
	})
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return retry(ctx, c.attempts, c.delay, func() error {
		return classify(c.client.Del(ctx, c.prefix+key).Err())
	})
}

func (c *RedisCache) Close() error { return c.client.Close() }

// classify marks network failures as retryable backend errors. redis.Nil and
// server replies pass through unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Retryable(fmt.Errorf("%w: %v", ErrBackend, err))
	}
	return err
}

var _ Cache = (*RedisCache)(nil)
