package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/davidbz/markl/internal/domain"
)

// Memory is the in-process response cache: TTL-based expiry plus
// oldest-first eviction once the store exceeds maxEntries.
type Memory struct {
	lru *expirable.LRU[string, domain.Result]
}

// NewMemory creates a store holding at most maxEntries results for ttl.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Memory{
		lru: expirable.NewLRU[string, domain.Result](maxEntries, nil, ttl),
	}
}

// Get retrieves a cached result by key.
func (m *Memory) Get(_ context.Context, key string) (*domain.Result, bool) {
	res, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &res, true
}

// Set stores a result. Values are copied in; the cache never aliases the
// caller's result.
func (m *Memory) Set(_ context.Context, key string, res *domain.Result) {
	if res == nil {
		return
	}
	m.lru.Add(key, *res)
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	return m.lru.Len()
}
