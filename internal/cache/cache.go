// Package cache stores short-lived twin state, chiefly admin session tokens.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is a byte-valued store with per-key expiry. MemoryCache serves one
// twin process; RedisCache lets several twins share sessions.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Clear drops every key owned by this cache.
	Clear(ctx context.Context) error
	Close() error
}
