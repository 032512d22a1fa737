// Package cache memoizes agent runs in Redis so repeated searches inside the
// TTL skip the browser entirely.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobscout/internal/hash/sha256"
	"github.com/JakeFAU/jobscout/internal/jobs"
	"github.com/JakeFAU/jobscout/internal/metrics"
)

const keyPrefix = "jobscout"

type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Cache holds the Redis connection shared by every wrapped agent.
type Cache struct {
	rdb    redisCmdable
	ttl    time.Duration
	hasher *sha256.Hasher
	logger *zap.Logger
}

// Connect dials Redis at redisURL (redis://host:6379/0) and checks it responds.
func Connect(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return newCache(client, ttl, logger), nil
}

func newCache(rdb redisCmdable, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, ttl: ttl, hasher: sha256.New(), logger: logger}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Wrap returns an agent that consults the cache before running inner.
func (c *Cache) Wrap(inner jobs.Agent) jobs.Agent {
	return &Agent{inner: inner, cache: c}
}

// Key derives the cache key for a run.
func (c *Cache) Key(source jobs.Source, req jobs.SearchRequest) string {
	digest := c.hasher.Key(16,
		string(source),
		strings.ToLower(strings.TrimSpace(req.Keyword)),
		strings.ToLower(strings.TrimSpace(req.Location)),
		strconv.Itoa(req.MaxResults),
	)
	return keyPrefix + ":" + string(source) + ":" + digest
}

// Agent decorates a jobs.Agent with Redis memoization. Cache faults are
// logged and fall through to the live agent; failed and empty runs are never
// stored.
type Agent struct {
	inner jobs.Agent
	cache *Cache
}

// Source implements jobs.Agent.
func (a *Agent) Source() jobs.Source {
	return a.inner.Source()
}

// Run implements jobs.Agent.
func (a *Agent) Run(ctx context.Context, req jobs.SearchRequest) ([]jobs.RawPosting, error) {
	if req.MaxResults <= 0 {
		return a.inner.Run(ctx, req)
	}
	key := a.cache.Key(a.Source(), req)
	logger := a.cache.logger.With(zap.String("source", string(a.Source())), zap.String("key", key))

	if cached, ok := a.lookup(ctx, key, logger); ok {
		return cached, nil
	}

	postings, err := a.inner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	// Empty runs (blocked pages, unrendered shells) always go back to the site.
	if len(postings) == 0 {
		return postings, nil
	}
	data, err := json.Marshal(postings)
	if err != nil {
		logger.Warn("cache encode failed", zap.Error(err))
		return postings, nil
	}
	if err := a.cache.rdb.Set(ctx, key, data, a.cache.ttl).Err(); err != nil {
		logger.Warn("cache store failed", zap.Error(err))
	}
	return postings, nil
}

func (a *Agent) lookup(ctx context.Context, key string, logger *zap.Logger) ([]jobs.RawPosting, bool) {
	data, err := a.cache.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.ObserveCacheLookup("miss")
		return nil, false
	case err != nil:
		metrics.ObserveCacheLookup("error")
		logger.Warn("cache lookup failed", zap.Error(err))
		return nil, false
	}
	var postings []jobs.RawPosting
	if err := json.Unmarshal(data, &postings); err != nil {
		metrics.ObserveCacheLookup("error")
		logger.Warn("cache entry corrupt", zap.Error(err))
		return nil, false
	}
	metrics.ObserveCacheLookup("hit")
	logger.Debug("cache hit", zap.Int("postings", len(postings)))
	return postings, true
}
