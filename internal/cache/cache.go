// Package cache is the Redis-backed query-result cache. Keys are
// derived from the exact query text (or token sequence) plus k: unlike
// a boolean search cache, term order matters here because n-grams are
// order-sensitive, so no term sorting or query rewriting happens before
// hashing the key.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/harrier-search/harrier/pkg/api"
	"github.com/harrier-search/harrier/pkg/config"
	pkgredis "github.com/harrier-search/harrier/pkg/redis"
)

const keyPrefix = "rank:"

// QueryCache caches RankResponses in Redis with single-flight
// protection so a stampede on one cold query computes it once.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a QueryCache over an established Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Key derives the cache key for a query/k pair. Exported so tests can
// pin key stability across releases; a key change silently voids every
// cached entry.
func Key(query string, k int) string {
	raw := query + "\x00k=" + strconv.Itoa(k)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

// TokensKey is Key for a pre-tokenized query. The separator cannot
// appear in a token, so distinct token sequences never collide.
func TokensKey(tokens []string, k int) string {
	return Key(strings.Join(tokens, "\x1f"), k)
}

// Get returns the cached response for key, if present and decodable.
func (c *QueryCache) Get(ctx context.Context, key string) (*api.RankResponse, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var resp api.RankResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &resp, true
}

// Set stores a response under key with the configured TTL. Best-effort:
// a failed write is logged, never surfaced.
func (c *QueryCache) Set(ctx context.Context, key string, resp *api.RankResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for key or computes, caches,
// and returns a fresh one. Concurrent callers for the same key share
// one computation but each receives its own copy: callers stamp
// per-request fields (LatencyMs) on the response, so handing every
// waiter the same pointer would let one request's write race another's
// encode. The second return reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() (*api.RankResponse, error),
) (*api.RankResponse, bool, error) {
	if resp, ok := c.Get(ctx, key); ok {
		return resp, true, nil
	}
	val, err, shared := c.group.Do(key, func() (interface{}, error) {
		if resp, ok := c.Get(ctx, key); ok {
			return resp, nil
		}
		resp, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	resp := val.(*api.RankResponse)
	if shared {
		cp := *resp
		resp = &cp
	}
	return resp, false, nil
}

// Invalidate deletes every cached ranking. Used after an index swap;
// stale results from the previous index must not survive it.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the process-lifetime hit and miss counters.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
