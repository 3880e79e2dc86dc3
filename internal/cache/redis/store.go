// Package redis provides a Redis-backed response cache for multi-process
// deployments. It satisfies the same interface as the in-memory store;
// misses and transport errors are indistinguishable to callers, so a
// flaky Redis degrades to cache misses rather than failed translations.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/markl/internal/domain"
	"github.com/davidbz/markl/internal/observability"
)

// Store caches translation results in Redis with a fixed TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis store.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get retrieves a cached result by key.
func (s *Store) Get(ctx context.Context, key string) (*domain.Result, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.FromContext(ctx).Warn("redis cache get failed",
				observability.Error(err), observability.String("cache_key", key))
		}
		return nil, false
	}

	var res domain.Result
	if err := json.Unmarshal(data, &res); err != nil {
		observability.FromContext(ctx).Warn("failed to unmarshal cached result",
			observability.Error(err), observability.String("cache_key", key))
		return nil, false
	}
	return &res, true
}

// Set stores a result under key for the configured TTL.
func (s *Store) Set(ctx context.Context, key string, res *domain.Result) {
	if res == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		observability.FromContext(ctx).Warn("failed to marshal result for cache",
			observability.Error(err), observability.String("cache_key", key))
		return
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		observability.FromContext(ctx).Warn("redis cache set failed",
			observability.Error(err), observability.String("cache_key", key))
	}
}
