package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = time.Minute

// MemoryBackend stores entries in process memory. It is used when no
// Redis endpoint is configured (single-instance deployments, tests);
// sessions then do not survive a restart.
type MemoryBackend struct {
	store *gocache.Cache
}

// NewMemoryBackend constructs an in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		store: gocache.New(gocache.NoExpiration, memoryCleanupInterval),
	}
}

// Set stores a value under key with the given expiry.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.store.Set(key, value, ttl)
	return nil
}

// Get reads the value stored under key, or ErrMiss.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.store.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value.([]byte), nil
}

// Delete removes the value stored under key.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Close is a no-op for the in-process backend.
func (m *MemoryBackend) Close() error {
	return nil
}
