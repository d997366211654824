// Package redis provides a Redis-backed cache for question keywords.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/refdex"
	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces cache entries.
const KeyPrefix = "refdex:keywords:"

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 24 * time.Hour

var _ refdex.KeywordCache = (*KeywordCache)(nil)

// KeywordCache implements refdex.KeywordCache using Redis.
type KeywordCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// Open connects to addr and verifies the connection.
func Open(ctx context.Context, addr string, ttl time.Duration) (*KeywordCache, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, refdex.Errorf(refdex.EINVALID, "redis address required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewKeywordCache(rdb, ttl), nil
}

// NewKeywordCache wraps an existing client. A non-positive ttl selects DefaultTTL.
func NewKeywordCache(rdb *goredis.Client, ttl time.Duration) *KeywordCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &KeywordCache{rdb: rdb, ttl: ttl}
}

// GetKeywords returns the cached keywords for question.
func (c *KeywordCache) GetKeywords(ctx context.Context, question string) ([]string, bool, error) {
	blob, err := c.rdb.Get(ctx, Key(question)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return refdex.SplitKeywords(blob), true, nil
}

// SetKeywords caches keywords for question until the TTL expires.
func (c *KeywordCache) SetKeywords(ctx context.Context, question string, keywords []string) error {
	if err := c.rdb.Set(ctx, Key(question), refdex.JoinKeywords(keywords), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *KeywordCache) Close() error {
	return c.rdb.Close()
}

// Key returns the cache key of question. Surrounding whitespace is ignored.
func Key(question string) string {
	return fmt.Sprintf("%s%016x", KeyPrefix, xxhash.Sum64String(strings.TrimSpace(question)))
}
