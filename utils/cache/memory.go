package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache used when Redis is not configured
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache whose entries expire after defaultTTL
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

// SetJSON stores a JSON-encoded copy of value so callers never share mutable state
func (m *MemoryCache) SetJSON(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	m.store.Set(key, data, expiration)
	return nil
}

// GetJSON decodes the cached value into dest
func (m *MemoryCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.store.Get(key)
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Delete removes keys from cache
func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.store.Delete(key)
	}
	return nil
}
