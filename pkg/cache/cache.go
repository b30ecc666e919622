package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the cache surface the stores and the scan lock depend on.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Key joins parts with ':' into a cache key.
func Key(parts ...interface{}) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, ":")
}

// Under returns the glob matching every key built with Key(parts..., more...).
func Under(parts ...interface{}) string {
	return Key(parts...) + ":*"
}

// ReadThrough serves key from c and falls back to load on a miss, storing
// what it returns unless load reports keep=false. Cache failures never fail
// the read; they are passed to warn when it is set. A nil c always loads.
func ReadThrough[T any](
	ctx context.Context,
	c Service,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (v T, keep bool, err error),
	warn func(op string, err error),
) (T, error) {
	if c == nil {
		v, _, err := load(ctx)
		return v, err
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) && warn != nil {
		warn("read", err)
	}

	v, keep, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if keep {
		if err := c.Set(ctx, key, v, ttl); err != nil && warn != nil {
			warn("write", err)
		}
	}
	return v, nil
}
