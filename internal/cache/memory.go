package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/lehmann314159/lexicon/internal/models"
)

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryCache is a bounded, in-process LRU cache with a fixed TTL.
// Entries are stored serialized so callers never share mutable state.
type MemoryCache struct {
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

// NewMemoryCache creates a cache holding at most size entries for ttl each
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &MemoryCache{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get implements WordCache
func (c *MemoryCache) Get(ctx context.Context, key string) (*models.WordEntry, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, nil
	}

	item := v.(memoryItem)
	if !c.now().Before(item.expiresAt) {
		c.lru.Remove(key)
		return nil, nil
	}

	var entry models.WordEntry
	if err := json.Unmarshal(item.payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &entry, nil
}

// Set implements WordCache
func (c *MemoryCache) Set(ctx context.Context, key string, entry *models.WordEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	c.lru.Add(key, memoryItem{payload: payload, expiresAt: c.now().Add(c.ttl)})
	return nil
}

// Delete implements WordCache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Ping implements WordCache
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of cached entries, including expired ones not yet evicted
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
