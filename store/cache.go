package store

import (
	"context"
	"sync"
)

// Cache is a key/value backend for persisted values.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// cloner is implemented by values that hold shared buffers. MemoryCache
// stores and returns clones of them.
type cloner[S any] interface {
	Clone() S
}

// MemoryCache keeps values in process memory. It backs the local store when
// no persistent cache is configured.
type MemoryCache[S any] struct {
	mu      sync.RWMutex
	entries map[string]S
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return &MemoryCache[S]{entries: make(map[string]S)}
}

func detach[S any](val S) S {
	if c, ok := any(val).(cloner[S]); ok {
		return c.Clone()
	}
	return val
}

func (c *MemoryCache[S]) Set(_ context.Context, key string, val S) error {
	val = detach(val)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = val
	return nil
}

func (c *MemoryCache[S]) Get(_ context.Context, key string) (S, bool, error) {
	c.mu.RLock()
	val, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		var zero S
		return zero, false, nil
	}
	return detach(val), true, nil
}

func (c *MemoryCache[S]) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.Get(ctx, key)
	return ok, err
}

var _ Cache[Entry] = (*MemoryCache[Entry])(nil)
