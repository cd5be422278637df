// Package cache keeps recent keyword search results in Redis so repeated
// dashboard loads don't spend the Reddit request budget.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/brand-radar/backend/pkg/logger"
	"github.com/anonto42/brand-radar/backend/pkg/reddit"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "brand-radar:search:"

// Connect returns a client, or nil when addr is empty or Redis does not answer.
// The service runs without the cache in both cases.
func Connect(addr string, log logger.Logger) *redis.Client {
	if addr == "" {
		log.Info("redis address not set, search cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, continuing without search cache",
			logger.String("addr", addr), logger.Error(err))
		_ = client.Close()
		return nil
	}
	log.Info("connected to redis", logger.String("addr", addr))
	return client
}

// SearchCache stores per-keyword search results for a short TTL.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSearchCache returns nil when client is nil; a nil *SearchCache is a valid, always-missing cache.
func NewSearchCache(client *redis.Client, ttl time.Duration) *SearchCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &SearchCache{client: client, ttl: ttl}
}

// Key derives the cache key. Keywords are compared case-insensitively.
func Key(opts reddit.SearchOptions) string {
	return fmt.Sprintf("%s%s|%s|%s|%d", keyPrefix,
		strings.ToLower(strings.TrimSpace(opts.Query)), opts.Sort, opts.Time, opts.Limit)
}

// Get returns the cached posts and whether there was a hit.
func (c *SearchCache) Get(ctx context.Context, opts reddit.SearchOptions) ([]reddit.Post, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, Key(opts)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read search cache: %w", err)
	}
	var posts []reddit.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, false, fmt.Errorf("failed to decode search cache: %w", err)
	}
	return posts, true, nil
}

// Set stores posts under the options key.
func (c *SearchCache) Set(ctx context.Context, opts reddit.SearchOptions, posts []reddit.Post) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("failed to encode search cache: %w", err)
	}
	if err := c.client.Set(ctx, Key(opts), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write search cache: %w", err)
	}
	return nil
}
