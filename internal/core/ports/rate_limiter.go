package ports

import (
	"context"
	"time"
)

// RateLimitRepository provides atomic fixed-window counters. Implementations
// must be safe for concurrent use.
type RateLimitRepository interface {
	// IncrementWindow increments subject's counter for the current window and
	// makes the key expire after ttl. It returns the new count and the window start.
	IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (count int, windowStart time.Time, err error)
}

// RateLimiter throttles expensive per-user operations.
type RateLimiter interface {
	// Allow consumes one unit for subject. remaining is what is left in the
	// current window (>= 0); reset is when the window rolls over.
	Allow(ctx context.Context, subject string) (allowed bool, remaining int, limit int, reset time.Time, err error)
}
