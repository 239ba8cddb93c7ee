package mocks

import (
	"context"
	"time"
)

// RateLimitRepositoryMock is an in-memory fixed-window counter for tests.
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)

	counts map[string]int
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, subject string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, subject, window, keyPrefix, ttl)
	}
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[keyPrefix+":"+subject]++
	return m.counts[keyPrefix+":"+subject], time.Now().Truncate(window), nil
}

// RateLimiterMock lets a test script each Allow decision.
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, subject string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, subject string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, subject)
	}
	return true, 100, 100, time.Now().Add(time.Minute), nil
}
