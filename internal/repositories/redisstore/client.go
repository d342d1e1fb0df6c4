// Package redisstore keeps the ledger's optional Redis-backed pieces: aggregate snapshots,
// journal-number counters and projection partition leases.
package redisstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "ledger"

// Client bundles a go-redis client with its lock client and key prefix.
type Client struct {
	rdb    redis.UniversalClient
	locker *redislock.Client
	prefix string
}

// New wraps an existing connection. prefix namespaces every key; empty means "ledger".
func New(rdb redis.UniversalClient, prefix string) *Client {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Client{rdb: rdb, locker: redislock.New(rdb), prefix: prefix}
}

// Connect dials addr and pings it, retrying with backoff until attempts run out or ctx ends.
func Connect(ctx context.Context, addr string, attempts int, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if attempts <= 0 {
		attempts = 1
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 100,
	})

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			logger.Info("Connected to redis", slog.String("addr", addr), slog.Int("attempt", attempt))
			return New(rdb, defaultPrefix), nil
		}
		if attempt == attempts {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		logger.Warn("Failed to connect to redis, retrying",
			slog.String("addr", addr), slog.Int("attempt", attempt), slog.Duration("retry_in", sleep), slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("connect redis at %s: %w", addr, err)
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// SnapshotCache returns the snapshot cache; entries expire after ttl (0 keeps them).
func (c *Client) SnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: c, ttl: ttl}
}

// SequenceAllocator returns the INCR-based journal-number allocator.
func (c *Client) SequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{client: c}
}

// LeaseLocker returns the redislock-based lease locker.
func (c *Client) LeaseLocker() *LeaseLocker {
	return &LeaseLocker{client: c}
}
