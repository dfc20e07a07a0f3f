package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/lehmann314159/lexicon/internal/models"
)

func strPtr(s string) *string {
	return &s
}

func sampleEntry(word string) *models.WordEntry {
	return &models.WordEntry{
		ID:         "id-" + word,
		Word:       word,
		Definition: strPtr("definition of " + word),
		Synonyms:   []string{"a", "b"},
	}
}

func TestKey(t *testing.T) {
	if got := Key("apple"); got != "word:apple" {
		t.Errorf("Key() = %q, want word:apple", got)
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	c, err := NewMemoryCache(10, time.Hour)
	if err != nil {
		t.Fatalf("NewMemoryCache() error = %v", err)
	}
	ctx := context.Background()

	got, err := c.Get(ctx, Key("apple"))
	if err != nil || got != nil {
		t.Fatalf("Get() on empty cache = %v, %v; want nil, nil", got, err)
	}

	entry := sampleEntry("apple")
	if err := c.Set(ctx, Key("apple"), entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Mutating the original after Set must not leak into the cache.
	entry.Word = "changed"

	got, err = c.Get(ctx, Key("apple"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Word != "apple" || *got.Definition != "definition of apple" {
		t.Errorf("Get() = %+v", got)
	}

	if err := c.Delete(ctx, Key("apple")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := c.Get(ctx, Key("apple")); got != nil {
		t.Error("Get() after Delete() should miss")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, _ := NewMemoryCache(10, DefaultTTL)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_ = c.Set(ctx, Key("apple"), sampleEntry("apple"))

	now = now.Add(DefaultTTL - time.Second)
	if got, _ := c.Get(ctx, Key("apple")); got == nil {
		t.Fatal("entry expired too early")
	}

	now = now.Add(time.Second)
	if got, _ := c.Get(ctx, Key("apple")); got != nil {
		t.Error("entry should have expired after the TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry evicted", c.Len())
	}
}

func TestMemoryCache_Bounded(t *testing.T) {
	c, _ := NewMemoryCache(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		w := fmt.Sprintf("w%d", i)
		_ = c.Set(ctx, Key(w), sampleEntry(w))
	}

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if got, _ := c.Get(ctx, Key("w0")); got != nil {
		t.Error("least recently used entry should have been evicted")
	}
	if got, _ := c.Get(ctx, Key("w4")); got == nil {
		t.Error("most recent entry should be cached")
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("LEXICON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEXICON_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	rc, err := NewRedisClient(ctx, RedisOptions{Addr: addr})
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer rc.Close()

	c := NewRedisCache(rc, time.Minute)
	key := Key(fmt.Sprintf("lexicon-test-%d", time.Now().UnixNano()))
	defer c.Delete(ctx, key)

	if got, err := c.Get(ctx, key); err != nil || got != nil {
		t.Fatalf("Get() on missing key = %v, %v; want nil, nil", got, err)
	}

	if err := c.Set(ctx, key, sampleEntry("apple")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil || got == nil || got.Word != "apple" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	ttl, err := c.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want within (0, 1m]", ttl)
	}

	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
