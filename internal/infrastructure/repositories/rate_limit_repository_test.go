package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/volunteer-hub/internal/infrastructure/repositories"
)

func TestRateLimitRedisRepository_IncrementWindow(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repositories.NewRateLimitRedisRepository(client)

	n, start, err := repo.IncrementWindow(ctx, "u1", time.Hour, "ratelimit:cache:vhub", 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, start2, err := repo.IncrementWindow(ctx, "u1", time.Hour, "ratelimit:cache:vhub", 2*time.Hour)
	require.NoError(t, err)
	if !start2.Equal(start) {
		t.Skip("window rolled over between calls")
	}
	assert.Equal(t, 2, n)

	key := fmt.Sprintf("ratelimit:cache:vhub:u1:%d", start.Unix())
	assert.Equal(t, []string{key}, mr.Keys())
	assert.Equal(t, 2*time.Hour, mr.TTL(key))
}
