package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/volunteer-hub/internal/infrastructure/redis"
)

func newTestStore(t *testing.T, prefix string) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewStore(client, prefix, time.Minute), mr
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "admin", redis.EscapeGlob("admin"))
	assert.Equal(t, `a\*b\?c\[d\]\\`, redis.EscapeGlob(`a*b?c[d]\`))
}

func TestStore_SetGetUnderPrefix(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, "vhub")

	require.NoError(t, s.Set(ctx, "user_data_1", []byte("x"), 0))
	assert.True(t, mr.Exists("vhub:user_data_1"))
	assert.False(t, mr.Exists("user_data_1"))

	v, ok, err := s.Get(ctx, "user_data_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), v)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_TTLPassthrough(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, "vhub")

	require.NoError(t, s.Set(ctx, "default", []byte("x"), 0))
	assert.Equal(t, time.Minute, mr.TTL("vhub:default"))

	require.NoError(t, s.Set(ctx, "short", []byte("x"), 10*time.Second))
	assert.Equal(t, 10*time.Second, mr.TTL("vhub:short"))

	mr.FastForward(11 * time.Second)
	_, ok, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(ctx, "default")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DeletePattern(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, "vhub")

	for _, k := range []string{"admin_events_1", "admin_registrations_1", "user_data_1"} {
		require.NoError(t, s.Set(ctx, k, []byte("x"), 0))
	}
	require.NoError(t, mr.Set("other:admin_events_1", "x"))

	n, err := s.DeletePattern(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, k := range []string{"admin_events_1", "admin_registrations_1"} {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	_, ok, err := s.Get(ctx, "user_data_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("other:admin_events_1"))
}

func TestStore_DeletePatternMatchesLiterally(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, "vhub")

	require.NoError(t, s.Set(ctx, "events_a", []byte("x"), 0))
	require.NoError(t, s.Set(ctx, "events_*", []byte("x"), 0))

	n, err := s.DeletePattern(ctx, "_*")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := s.Get(ctx, "events_a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DeleteAndClearStayInNamespace(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, "vhub")

	require.NoError(t, s.Set(ctx, "user_data_1", []byte("x"), 0))
	require.NoError(t, s.Set(ctx, "volunteer_events", []byte("x"), 0))
	require.NoError(t, mr.Set("ratelimit:cache:vhub:u1:1700000000", "3"))

	require.NoError(t, s.Delete(ctx, "user_data_1"))
	assert.False(t, mr.Exists("vhub:user_data_1"))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("vhub:volunteer_events"))
	assert.True(t, mr.Exists("ratelimit:cache:vhub:u1:1700000000"))
}
