package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const scanCount = 500

// Store implements ports.Cache on Redis so several instances can share one
// cache. Expiry is delegated to Redis TTLs.
type Store struct {
	r          redis.Cmdable
	prefix     string
	defaultTTL time.Duration
}

// NewStore creates a Redis-backed cache. prefix namespaces every key; it is
// also the scope of Clear.
func NewStore(r redis.Cmdable, prefix string, defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Store{r: r, prefix: prefix, defaultTTL: defaultTTL}
}

func (s *Store) namespaced(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.r.Get(ctx, s.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.r.Set(ctx, s.namespaced(key), value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.r.Del(ctx, s.namespaced(key)).Err()
}

// DeletePattern removes every key whose un-prefixed name contains substr.
func (s *Store) DeletePattern(ctx context.Context, substr string) (int, error) {
	return s.deleteMatching(ctx, s.namespaced("*"+EscapeGlob(substr)+"*"))
}

// Clear drops every key under the prefix.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.deleteMatching(ctx, s.namespaced("*"))
	return err
}

func (s *Store) deleteMatching(ctx context.Context, match string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.r.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := s.r.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// EscapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func EscapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
