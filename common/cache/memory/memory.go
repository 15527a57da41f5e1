package memory

import (
	"context"
	"encoding"
	"sync"
	"time"

	"jobmart/common/cache"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache keeps encoded values in process memory. Expired entries are dropped
// when read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	opts    cache.Options
	closed  bool
	now     func() time.Time
}

func New(opts cache.Options) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		opts:    opts,
		now:     time.Now,
	}
}

func (c *Cache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case encoding.BinaryMarshaler:
		b, err := v.MarshalBinary()
		if err != nil {
			return err
		}
		data = b
	default:
		return cache.ErrInvalidValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}
	c.entries[key] = entry{data: data, expiresAt: c.now().Add(c.opts.TTL(ttl))}
	return nil
}

func (c *Cache) Get(_ context.Context, key string, value interface{}) error {
	if key == "" {
		return cache.ErrInvalidKey
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return cache.ErrClosed
	}
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return cache.ErrNotFound
	}

	switch v := value.(type) {
	case *string:
		*v = string(e.data)
	case encoding.BinaryUnmarshaler:
		return v.UnmarshalBinary(e.data)
	default:
		return cache.ErrInvalidValue
	}
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}
	delete(c.entries, key)
	return nil
}

func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}
	c.entries = make(map[string]entry)
	return nil
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = nil
	return nil
}
