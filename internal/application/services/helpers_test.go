package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	impl "github.com/avatarctic/volunteer-hub/internal/application/services"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/cache"
)

var errBackend = errors.New("backend down")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newStore(clk *testClock) *cache.MemoryStore {
	if clk == nil {
		return cache.NewMemoryStore(time.Minute)
	}
	return cache.NewMemoryStore(time.Minute, cache.WithClock(clk.Now))
}

func newDomainCache(store *cache.MemoryStore) *impl.DomainCache {
	return impl.NewDomainCache(store, impl.DefaultDomainCacheTTLs(), nil, nil)
}

func has(t *testing.T, store *cache.MemoryStore, key string) bool {
	t.Helper()
	_, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	return ok
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for preload job")
	}
}

var (
	volunteerUser = &volunteer.User{ID: "u1", Email: "vol@example.com", FullName: "Val Volunteer"}
	adminUser     = &volunteer.User{ID: "a1", Email: "adm@example.com", FullName: "Ada Admin", IsAdmin: true}
)
