package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Client is a read-aside JSON cache over Redis. The cache is advisory, not a
// source of truth: lookup errors count as misses and write failures are logged
// and swallowed, so a degraded Redis never fails a request.
type Client struct {
	Rdb *redis.Client
}

// New builds a Client from a Redis URL (same URL form as the session store).
func New(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Client{Rdb: redis.NewClient(opt)}, nil
}

// Get unmarshals the cached value under key into dest and reports whether the
// key was present.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) bool {
	b, err := c.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("cache get failed; treating as miss")
		}
		return false
	}
	if err := json.Unmarshal(b, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable; treating as miss")
		return false
	}
	return true
}

// Set stores v under key with the given TTL.
func (c *Client) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set: marshal failed")
		return
	}
	if err := c.Rdb.Set(ctx, key, b, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete invalidates key. A failed delete leaves stale data until TTL expiry.
func (c *Client) Delete(ctx context.Context, key string) {
	if err := c.Rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed; stale until TTL")
	}
}
