// Package cache stores allocation results between runs.
//
// A run is a pure function of its floor plan, its projects and its options,
// so the pipeline hashes those inputs into a key and keeps the encoded
// result under it. Three backends are provided:
//
//   - [FileCache] for the CLI, one JSON file per key under a directory
//   - [RedisCache] for the HTTP service, shared between replicas
//   - [NullCache] when caching is disabled
//
// Keys are built by a [Keyer] so services can scope them per tenant.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long an allocation result stays cached.
const DefaultTTL = 24 * time.Hour

// Cache is a byte store with per-entry expiry.
//
// Get reports a miss with ok == false and a nil error. Expired entries are
// misses. A zero ttl in Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
