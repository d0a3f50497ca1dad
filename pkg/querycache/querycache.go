// Package querycache caches backend read results in redis under explicit
// keys. Every write path names the keys it invalidates; nothing is cleared
// by accident and nothing is refetched that the write could not affect.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// ErrDisabled is returned by Query when the request is not enabled, for
// example because an input it depends on is still empty.
var ErrDisabled = errors.New("query is disabled")

var lookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tutorhub_query_cache_lookups_total",
		Help: "Query cache lookups by scope and result",
	},
	[]string{"scope", "result"},
)

// Key identifies one cached query: a scope plus its parameters.
type Key struct {
	Scope string
	Parts []string
}

func NewKey(scope string, parts ...string) Key {
	return Key{Scope: scope, Parts: parts}
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString("query:")
	b.WriteString(k.Scope)
	for _, p := range k.Parts {
		b.WriteByte(':')
		b.WriteString(strings.ToLower(p))
	}
	return b.String()
}

func (k Key) depsKey() string {
	return "deps:" + k.String()
}

// Request describes a cached read.
type Request[T any] struct {
	Key Key
	// Dependencies are keys whose invalidation must also drop this entry,
	// such as a family key shared by every page of a listing.
	Dependencies []Key
	Fetch        func(ctx context.Context) (T, error)
	Enabled      bool
	// TTL overrides the cache default when non-zero.
	TTL time.Duration
}

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Query returns the cached value for req.Key or runs req.Fetch and stores
// the result. Fetch errors are never cached.
func Query[T any](ctx context.Context, c *Cache, req Request[T]) (T, error) {
	var zero T
	if !req.Enabled {
		return zero, ErrDisabled
	}
	if c == nil || c.rdb == nil {
		return req.Fetch(ctx)
	}

	key := req.Key.String()
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			lookups.WithLabelValues(req.Key.Scope, "hit").Inc()
			return cached, nil
		}
		slog.Warn("dropping undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("query cache read failed", "key", key, "error", err)
	}
	lookups.WithLabelValues(req.Key.Scope, "miss").Inc()

	value, err := req.Fetch(ctx)
	if err != nil {
		return zero, err
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := c.store(ctx, key, value, ttl, req.Dependencies); err != nil {
		slog.Warn("query cache write failed", "key", key, "error", err)
	}
	return value, nil
}

func (c *Cache) store(ctx context.Context, key string, value any, ttl time.Duration, deps []Key) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	for _, dep := range deps {
		pipe.SAdd(ctx, dep.depsKey(), key)
		if ttl > 0 {
			pipe.Expire(ctx, dep.depsKey(), ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate drops the given keys and every entry registered as depending on
// them.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return nil
	}

	targets := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		targets = append(targets, k.String(), k.depsKey())
		members, err := c.rdb.SMembers(ctx, k.depsKey()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read dependents of %s: %w", k, err)
		}
		targets = append(targets, members...)
	}

	if err := c.rdb.Del(ctx, targets...).Err(); err != nil {
		return fmt.Errorf("invalidate cache keys: %w", err)
	}
	return nil
}
