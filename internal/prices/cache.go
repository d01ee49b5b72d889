package prices

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "prices:"

type keyValue interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedFetcher shares identical batched responses between sessions for a
// short TTL. Cache failures fall through to the wrapped fetcher; errors are
// never cached.
type CachedFetcher struct {
	next Fetcher
	kv   keyValue
	ttl  time.Duration
	log  *slog.Logger
}

func NewCachedFetcher(next Fetcher, kv keyValue, ttl time.Duration, log *slog.Logger) *CachedFetcher {
	return &CachedFetcher{
		next: next,
		kv:   kv,
		ttl:  ttl,
		log:  log,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, ids []string) (Snapshot, error) {
	key := cacheKey(ids)

	cached, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if err := json.Unmarshal(cached, &snap); err == nil {
			return snap, nil
		}
		c.log.Warn("dropping corrupted price cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("price cache read failed", "key", key, "error", err)
	}

	snap, err := c.next.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		c.log.Error("failed to marshal price snapshot", "error", err)
		return snap, nil
	}
	if err := c.kv.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("price cache write failed", "key", key, "error", err)
	}

	return snap, nil
}

func cacheKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return cacheKeyPrefix + strings.Join(sorted, ",")
}
