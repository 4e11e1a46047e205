package cache

import (
	"context"
	"time"
)

// JSONCache is the subset of cache operations the services depend on.
// RedisCache and MemoryCache both satisfy it.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
