package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avatarctic/volunteer-hub/internal/core/ports"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	data      []byte
	timestamp time.Time
	expiresIn time.Duration
}

// expired reports whether the entry's lifetime has fully elapsed at now.
func (e entry) expired(now time.Time) bool {
	return now.Sub(e.timestamp) >= e.expiresIn
}

// MemoryStore implements ports.Cache with an in-process map. Expired entries are
// evicted lazily on read, or in bulk by Sweep.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
	metrics    ports.Metrics
}

type Option func(*MemoryStore)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m ports.Metrics) Option {
	return func(s *MemoryStore) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewMemoryStore(defaultTTL time.Duration, opts ...Option) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	s := &MemoryStore{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		metrics:    ports.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		s.metrics.CacheExpired()
		return nil, false, nil
	}
	return clone(e.data), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.mu.Lock()
	s.entries[key] = entry{data: clone(value), timestamp: s.now(), expiresIn: ttl}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// DeletePattern scans every key, so it is O(n) in the store size.
func (s *MemoryStore) DeletePattern(_ context.Context, substr string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k := range s.entries {
		if strings.Contains(k, substr) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

// Sweep removes every expired entry and returns the count. Reads stay correct
// without it; it only reclaims memory for keys nobody reads again.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
