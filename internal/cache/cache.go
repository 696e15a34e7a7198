package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or its entry has expired.
var ErrMiss = errors.New("cache miss")

// Backend defines common key-value operations across cache backends.
// Entries expire on a fixed schedule from when they were set; reads do
// not renew them.
type Backend interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Cache wraps a Backend with a stable API.
type Cache struct {
	backend Backend
}

// New constructs a Cache wrapper for the provided backend.
func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// Set stores a value under key with the given expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.backend.Set(ctx, key, value, ttl)
}

// Get reads the value stored under key, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.backend.Get(ctx, key)
}

// Delete removes the value stored under key. Deleting an absent key is
// not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

// Close closes the underlying backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}
