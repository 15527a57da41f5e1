package redis

import (
	"context"
	"encoding"
	"fmt"
	"time"

	"jobmart/common/cache"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	opts   cache.Options
}

func New(opts cache.Options) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisURL,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	return &Cache{client: client, opts: opts}
}

// Ping checks the server is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (c *Cache) key(key string) (string, error) {
	if key == "" {
		return "", cache.ErrInvalidKey
	}
	return c.opts.KeyPrefix + key, nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	k, err := c.key(key)
	if err != nil {
		return err
	}
	switch value.(type) {
	case string, encoding.BinaryMarshaler:
	default:
		return cache.ErrInvalidValue
	}
	return c.client.Set(ctx, k, value, c.opts.TTL(ttl)).Err()
}

func (c *Cache) Get(ctx context.Context, key string, value interface{}) error {
	k, err := c.key(key)
	if err != nil {
		return err
	}
	val, err := c.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		return cache.ErrNotFound
	}
	if err != nil {
		return err
	}

	switch v := value.(type) {
	case *string:
		*v = string(val)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(val)
	default:
		return cache.ErrInvalidValue
	}

	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	k, err := c.key(key)
	if err != nil {
		return err
	}
	return c.client.Del(ctx, k).Err()
}

// Clear removes every key under the configured prefix.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.opts.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
