// Package redis provides the Redis-backed queue and blacklist-set clients
// shared with the crawler.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sievesearch/sieve/internal/pipeline"
)

// Options configures the Redis connection. Transient failures are retried by
// the client itself with exponential backoff up to MaxRetries.
type Options struct {
	Addr            string
	Password        string
	DB              int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
}

// Client implements pipeline.Queue and pipeline.DomainSet over one Redis
// connection pool.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with a ping. An
// unreachable Redis at startup is fatal to the caller.
func New(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		MaxRetries:      opts.MaxRetries,
		MinRetryBackoff: opts.MinRetryBackoff,
		MaxRetryBackoff: opts.MaxRetryBackoff,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// BLPop blocks until an item is available on key or the timeout elapses.
// A zero timeout waits indefinitely.
func (c *Client) BLPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := c.rdb.BLPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pipeline.ErrQueueEmpty
		}
		return nil, fmt.Errorf("blpop %s: %w", key, err)
	}
	// BLPOP returns the key name followed by the popped value.
	if len(res) < 2 {
		return nil, fmt.Errorf("blpop %s: unexpected reply length %d", key, len(res))
	}
	return []byte(res[1]), nil
}

// LPop pops the head of key without blocking.
func (c *Client) LPop(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.LPop(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pipeline.ErrQueueEmpty
		}
		return nil, fmt.Errorf("lpop %s: %w", key, err)
	}
	return data, nil
}

// RPush appends values to the tail of key.
func (c *Client) RPush(ctx context.Context, key string, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := c.rdb.RPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

// Add inserts member into the set at key.
func (c *Client) Add(ctx context.Context, key string, member string) error {
	if err := c.rdb.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
