// Package cache holds the fast lookup cache that sits in front of the word
// store. A cache only accelerates lookups: an absent or stale entry is always
// acceptable, and the durable store stays the authority on existence.
package cache

import (
	"context"
	"time"

	"github.com/lehmann314159/lexicon/internal/models"
)

const (
	// DefaultTTL is how long a resolved word stays cached
	DefaultTTL = 24 * time.Hour
	// DefaultSize bounds the number of entries of the in-process cache
	DefaultSize = 1000
)

// WordCache caches resolved word entries by key
type WordCache interface {
	// Get returns the cached entry, or nil without error on a miss
	Get(ctx context.Context, key string) (*models.WordEntry, error)
	// Set stores the entry for the configured TTL
	Set(ctx context.Context, key string, entry *models.WordEntry) error
	// Delete evicts the key
	Delete(ctx context.Context, key string) error
	// Ping checks that the cache backend is reachable
	Ping(ctx context.Context) error
}

// Key returns the cache key of a normalized word
func Key(word string) string {
	return "word:" + word
}
