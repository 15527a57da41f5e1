package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("key not found in cache")
	ErrInvalidValue = errors.New("invalid value for cache")
	ErrClosed       = errors.New("cache is closed")
	ErrInvalidKey   = errors.New("invalid cache key")
)

// Cache stores values that are strings or implement
// encoding.BinaryMarshaler. Get decodes into a *string or an
// encoding.BinaryUnmarshaler.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Get(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	Clear(ctx context.Context) error

	Close() error
}

type Options struct {
	DefaultTTL time.Duration

	// KeyPrefix namespaces every key, so several deployments can share a
	// server.
	KeyPrefix string

	RedisURL string

	RedisPassword string

	RedisDB int
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL: time.Hour,
		KeyPrefix:  "jobmart:",
	}
}

// TTL resolves a zero ttl to the default.
func (o Options) TTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	if o.DefaultTTL > 0 {
		return o.DefaultTTL
	}
	return DefaultOptions().DefaultTTL
}
