package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehmann314159/lexicon/internal/cache"
	"github.com/lehmann314159/lexicon/internal/logging"
	"github.com/lehmann314159/lexicon/internal/models"
	"github.com/lehmann314159/lexicon/internal/pagination"
	"github.com/lehmann314159/lexicon/internal/repository"
)

// fakeDictionary serves definitions for a fixed set of words and 404 for
// everything else
type fakeDictionary struct {
	server *httptest.Server
	calls  atomic.Int32
	fail   atomic.Bool
}

func newFakeDictionary(t *testing.T, words ...string) *fakeDictionary {
	t.Helper()
	known := make(map[string]bool, len(words))
	for _, w := range words {
		known[w] = true
	}

	f := &fakeDictionary{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		if f.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		word := strings.TrimPrefix(r.URL.Path, "/")
		if !known[word] {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"title":"No Definitions Found"}`))
			return
		}
		fmt.Fprintf(w, `[{"word":%q,"meanings":[{"partOfSpeech":"noun","definitions":[{"definition":"the %s"}]}]}]`, word, word)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDictionary) service(t *testing.T) *DictionaryService {
	return newTestDictionary(t, f.server, DictionaryOptions{Retry: testPolicy(1)})
}

type testEnv struct {
	svc   *WordService
	repo  *repository.SQLiteRepository
	cache *cache.MemoryCache
	dict  *fakeDictionary
}

func setupTestService(t *testing.T, words ...string) *testEnv {
	t.Helper()

	db, err := repository.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	memCache, err := cache.NewMemoryCache(100, time.Hour)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	repo := repository.NewSQLiteRepository(db)
	dict := newFakeDictionary(t, words...)
	svc := NewWordService(repo, memCache, dict.service(t), logging.Discard())

	return &testEnv{svc: svc, repo: repo, cache: memCache, dict: dict}
}

func TestWordService_Resolve_MissThenHit(t *testing.T) {
	env := setupTestService(t, "apple")
	ctx := context.Background()

	first, status, err := env.svc.Resolve(ctx, "  Apple ", "u1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if status != models.CacheMiss {
		t.Errorf("first Resolve() status = %v, want MISS", status)
	}
	if first.Word != "apple" || first.Definition == nil || *first.Definition != "the apple" {
		t.Errorf("Resolve() = %+v", first)
	}
	if first.SearchCount != 1 {
		t.Errorf("Resolve() SearchCount = %d, want 1", first.SearchCount)
	}

	second, status, err := env.svc.Resolve(ctx, "apple", "u1")
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if status != models.CacheHit {
		t.Errorf("second Resolve() status = %v, want HIT", status)
	}
	if second.ID != first.ID || *second.Definition != *first.Definition || second.SearchCount != first.SearchCount {
		t.Errorf("cached entry %+v differs from %+v", second, first)
	}

	if got := env.dict.calls.Load(); got != 1 {
		t.Errorf("dictionary calls = %d, want 1", got)
	}

	page, err := env.svc.History(ctx, "u1", "", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if page.TotalCount != 2 {
		t.Errorf("History() total = %d, want 2 (one per resolution)", page.TotalCount)
	}
}

func TestWordService_Resolve_DurableHit(t *testing.T) {
	env := setupTestService(t, "apple")
	ctx := context.Background()

	if _, _, err := env.svc.Resolve(ctx, "apple", "u1"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := env.cache.Delete(ctx, cache.Key("apple")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	entry, status, err := env.svc.Resolve(ctx, "apple", "u1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if status != models.CacheMiss {
		t.Errorf("status = %v, want MISS", status)
	}
	if entry.SearchCount != 2 {
		t.Errorf("SearchCount = %d, want 2", entry.SearchCount)
	}
	if got := env.dict.calls.Load(); got != 1 {
		t.Errorf("dictionary calls = %d, want 1 (store hit)", got)
	}
	if cached, _ := env.cache.Get(ctx, cache.Key("apple")); cached == nil {
		t.Error("durable hit should repopulate the cache")
	}
}

func TestWordService_Resolve_NotFound(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	for _, word := range []string{"qwxz", "   "} {
		_, _, err := env.svc.Resolve(ctx, word, "u1")
		if !errors.Is(err, ErrWordNotFound) {
			t.Errorf("Resolve(%q) error = %v, want ErrWordNotFound", word, err)
		}
	}

	if count, _ := env.repo.Count(ctx, ""); count != 0 {
		t.Errorf("store has %d words, want 0", count)
	}
	if count, _ := env.repo.CountHistory(ctx, "u1"); count != 0 {
		t.Errorf("history has %d rows, want 0", count)
	}
	if env.cache.Len() != 0 {
		t.Errorf("cache has %d entries, want 0", env.cache.Len())
	}
}

func TestWordService_Resolve_EnrichmentUnavailable(t *testing.T) {
	env := setupTestService(t, "apple")
	env.dict.fail.Store(true)
	ctx := context.Background()

	_, _, err := env.svc.Resolve(ctx, "apple", "u1")
	if !errors.Is(err, ErrEnrichmentUnavailable) {
		t.Fatalf("Resolve() error = %v, want ErrEnrichmentUnavailable", err)
	}
	if got := env.dict.calls.Load(); got != 2 {
		t.Errorf("dictionary calls = %d, want 2 (one retry)", got)
	}
	if count, _ := env.repo.Count(ctx, ""); count != 0 {
		t.Errorf("store has %d words, want 0", count)
	}
}

func TestWordService_Resolve_FillsPlaceholder(t *testing.T) {
	env := setupTestService(t, "apple")
	ctx := context.Background()

	if _, err := env.repo.InsertPlaceholders(ctx, []string{"apple"}); err != nil {
		t.Fatalf("InsertPlaceholders() error = %v", err)
	}
	placeholder, _ := env.repo.GetByWord(ctx, "apple")

	entry, status, err := env.svc.Resolve(ctx, "apple", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if status != models.CacheMiss || !entry.Enriched() {
		t.Errorf("Resolve() = %+v, %v", entry, status)
	}
	if entry.ID != placeholder.ID {
		t.Errorf("placeholder replaced: id %s, want %s", entry.ID, placeholder.ID)
	}

	stored, _ := env.repo.GetByWord(ctx, "apple")
	if !stored.Enriched() {
		t.Error("placeholder was not filled in the store")
	}
}

func TestWordService_Resolve_ConcurrentFirstResolution(t *testing.T) {
	env := setupTestService(t, "apple")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	ids := make([]string, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, _, err := env.svc.Resolve(ctx, "apple", fmt.Sprintf("u%d", i))
			errs[i] = err
			if entry != nil {
				ids[i] = entry.ID
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Resolve() #%d error = %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Errorf("Resolve() #%d id = %s, want %s", i, ids[i], ids[0])
		}
	}
	if count, _ := env.repo.Count(ctx, "apple"); count != 1 {
		t.Errorf("store has %d rows for apple, want 1", count)
	}
}

func TestWordService_ListWords(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	for _, w := range []string{"apple", "banana", "cherry"} {
		if _, err := env.repo.Create(ctx, &models.WordEntry{Word: w}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	page, err := env.svc.ListWords(ctx, "", "", 2)
	if err != nil {
		t.Fatalf("ListWords() error = %v", err)
	}
	if fmt.Sprint(page.Results) != "[apple banana]" || page.TotalCount != 3 {
		t.Errorf("first page = %+v", page)
	}
	if !page.HasNext || page.NextCursor == nil || page.HasPrev || page.PreviousCursor != nil {
		t.Errorf("first page flags = next %v prev %v", page.HasNext, page.HasPrev)
	}

	page, err = env.svc.ListWords(ctx, "", *page.NextCursor, 2)
	if err != nil {
		t.Fatalf("ListWords() error = %v", err)
	}
	if fmt.Sprint(page.Results) != "[cherry]" || page.HasNext || page.NextCursor != nil || !page.HasPrev {
		t.Errorf("second page = %+v", page)
	}

	page, _ = env.svc.ListWords(ctx, "AN", "", 10)
	if fmt.Sprint(page.Results) != "[banana]" || page.TotalCount != 1 {
		t.Errorf("search page = %+v", page)
	}

	if _, err := env.svc.ListWords(ctx, "", "not-a-cursor!", 2); !errors.Is(err, pagination.ErrMalformedCursor) {
		t.Errorf("ListWords() bad cursor error = %v", err)
	}
	if _, err := env.svc.ListWords(ctx, "", "", 0); !errors.Is(err, pagination.ErrInvalidPageSize) {
		t.Errorf("ListWords() zero limit error = %v", err)
	}
}

func TestWordService_HistoryPaging(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	word, _ := env.repo.Create(ctx, &models.WordEntry{Word: "apple"})
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		// pairs of identical timestamps
		ts := at.Add(time.Duration(i/2) * time.Minute)
		if _, err := env.repo.CreateHistory(ctx, &models.HistoryRecord{UserID: "u1", WordID: word.ID, SearchedAt: ts}); err != nil {
			t.Fatalf("CreateHistory() error = %v", err)
		}
	}

	var seen []time.Time
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
		page, err := env.svc.History(ctx, "u1", cursor, 3)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		for _, a := range page.Results {
			seen = append(seen, a.Added)
		}
		if !page.HasNext {
			break
		}
		cursor = *page.NextCursor
	}

	if len(seen) != 7 {
		t.Fatalf("paged %d records, want 7", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].After(seen[i-1]) {
			t.Errorf("history not newest first at %d: %v after %v", i, seen[i], seen[i-1])
		}
	}
}

func TestWordService_Favorites(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	if _, err := env.repo.Create(ctx, &models.WordEntry{Word: "apple"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := env.svc.AddFavorite(ctx, "pear", "u1"); !errors.Is(err, ErrWordNotFound) {
		t.Errorf("AddFavorite(unknown) error = %v, want ErrWordNotFound", err)
	}

	first, err := env.svc.AddFavorite(ctx, "apple", "u1")
	if err != nil {
		t.Fatalf("AddFavorite() error = %v", err)
	}
	again, err := env.svc.AddFavorite(ctx, "Apple", "u1")
	if err != nil {
		t.Fatalf("second AddFavorite() error = %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("second AddFavorite() id = %s, want existing %s", again.ID, first.ID)
	}

	page, _ := env.svc.Favorites(ctx, "u1", "", 10)
	if page.TotalCount != 1 || len(page.Results) != 1 || page.Results[0].Word != "apple" {
		t.Errorf("Favorites() = %+v", page)
	}

	if err := env.svc.RemoveFavorite(ctx, "apple", "u2"); !errors.Is(err, ErrFavoriteNotFound) {
		t.Errorf("RemoveFavorite(other user) error = %v, want ErrFavoriteNotFound", err)
	}
	if err := env.svc.RemoveFavorite(ctx, "apple", "u1"); err != nil {
		t.Fatalf("RemoveFavorite() error = %v", err)
	}
	if err := env.svc.RemoveFavorite(ctx, "apple", "u1"); !errors.Is(err, ErrFavoriteNotFound) {
		t.Errorf("second RemoveFavorite() error = %v, want ErrFavoriteNotFound", err)
	}
	if err := env.svc.RemoveFavorite(ctx, "pear", "u1"); !errors.Is(err, ErrWordNotFound) {
		t.Errorf("RemoveFavorite(unknown) error = %v, want ErrWordNotFound", err)
	}
}

func TestWordService_Ping(t *testing.T) {
	env := setupTestService(t)
	if err := env.svc.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
