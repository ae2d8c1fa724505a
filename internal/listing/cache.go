// AngelaMos | 2026
// cache.go

package listing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	feedVersionKey = "feed:version"
	feedKeyPrefix  = "feed:page:"
)

type FeedPage struct {
	Items []Listing `json:"items"`
	Total int       `json:"total"`
}

// FeedCache stores raw feed pages. Invalidate bumps a version counter so
// every old page key is orphaned at once and left to expire.
type FeedCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFeedCache(rdb *redis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{rdb: rdb, ttl: ttl}
}

func (c *FeedCache) key(ctx context.Context, scope string, params any) (string, error) {
	version, err := c.rdb.Get(ctx, feedVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("read feed version: %w", err)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode feed params: %w", err)
	}
	sum := sha256.Sum256(raw)

	return fmt.Sprintf("%s%d:%s:%s", feedKeyPrefix, version, scope,
		hex.EncodeToString(sum[:8])), nil
}

func (c *FeedCache) Get(ctx context.Context, scope string, params any) (*FeedPage, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}

	key, err := c.key(ctx, scope, params)
	if err != nil {
		return nil, false, err
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read feed page: %w", err)
	}

	var page FeedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("decode feed page: %w", err)
	}
	return &page, true, nil
}

func (c *FeedCache) Set(ctx context.Context, scope string, params any, page *FeedPage) error {
	if c == nil || c.rdb == nil {
		return nil
	}

	key, err := c.key(ctx, scope, params)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode feed page: %w", err)
	}
	return c.rdb.Set(ctx, key, raw, c.ttl).Err()
}

func (c *FeedCache) Invalidate(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Incr(ctx, feedVersionKey).Err()
}
