package ports

import (
	"context"
	"time"
)

// Cache defines the TTL key-value store every cached facet lives in.
// A miss is reported with ok=false, never as an error. Implementations backed by
// a network may return errors; callers treat those as misses and log.
type Cache interface {
	// Get returns the raw bytes for key. ok=false if absent or expired; an
	// expired entry is removed as a side effect.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key, resetting its clock. ttl <= 0 uses the store default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key; absence is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key containing substr and returns how many went.
	DeletePattern(ctx context.Context, substr string) (int, error)
	// Clear drops everything.
	Clear(ctx context.Context) error
}
