// Package cache wraps redis as a read-through JSON cache for catalog pages.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// Key prefixes. Everything lives under Root so a single prefix clear drops the
// whole catalog.
const (
	Root             = "catalog:"
	PrefixProducts   = Root + "products"
	PrefixCategories = Root + "categories"
	PrefixRegions    = Root + "regions"
)

// Catalog is a redis-backed cache. A nil *Catalog or one built without a
// client is a no-op and always falls through to the loader.
type Catalog struct {
	rdb     *redis.Client
	enabled bool

	hits   atomic.Int64
	misses atomic.Int64
}

// NewClient builds a redis client from config. It does not dial.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func New(rdb *redis.Client, enabled bool) *Catalog {
	return &Catalog{rdb: rdb, enabled: enabled && rdb != nil}
}

func (c *Catalog) active() bool { return c != nil && c.enabled }

// BuildKey joins prefix and query params in sorted order so that the same
// filter set always maps to the same key. Empty values are dropped.
func BuildKey(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return prefix
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(prefix)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%s", k, params[k])
	}
	return b.String()
}

// GetOrLoad returns the cached value for key or calls load and stores its
// result for ttl. Redis errors are logged and never fail the read.
func GetOrLoad[T any](ctx context.Context, c *Catalog, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if !c.active() {
		return load(ctx)
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out T
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			c.hits.Add(1)
			return out, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	c.misses.Add(1)

	val, err := load(ctx)
	if err != nil {
		return val, err
	}
	if payload, mErr := json.Marshal(val); mErr == nil {
		if sErr := c.rdb.Set(ctx, key, payload, ttl).Err(); sErr != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(sErr))
		}
	}
	return val, nil
}

// ClearPrefix deletes every key starting with prefix and returns how many
// were removed.
func (c *Catalog) ClearPrefix(ctx context.Context, prefix string) (int, error) {
	if !c.active() {
		return 0, nil
	}
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			pipe := c.rdb.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, err
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Ping reports redis health; a disabled cache is always healthy.
func (c *Catalog) Ping(ctx context.Context) error {
	if !c.active() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Stats hit/miss counters since start.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

func (c *Catalog) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
