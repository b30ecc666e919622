package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the shared Redis connection.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	PingTimeout  time.Duration
}

// NewRedisClient dials Redis and pings it once so a bad address fails at
// startup instead of on the first scan.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis: empty address")
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	maxEntries    int
	sweepInterval time.Duration
}

// WithMaxEntries caps the entry count; the least recently read entry goes first.
func WithMaxEntries(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithSweepInterval sets how often expired entries are dropped.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// LayeredOption configures a LayeredCache.
type LayeredOption func(*layeredConfig)

type layeredConfig struct {
	entries int
	ttl     time.Duration
}

// WithL1Entries caps the in-process layer.
func WithL1Entries(n int) LayeredOption {
	return func(c *layeredConfig) {
		if n > 0 {
			c.entries = n
		}
	}
}

// WithL1TTL bounds how stale the in-process layer may get relative to Redis.
func WithL1TTL(d time.Duration) LayeredOption {
	return func(c *layeredConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}
