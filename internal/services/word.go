package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lehmann314159/lexicon/internal/cache"
	"github.com/lehmann314159/lexicon/internal/models"
	"github.com/lehmann314159/lexicon/internal/pagination"
	"github.com/lehmann314159/lexicon/internal/repository"
)

// ErrFavoriteNotFound is returned when removing a word the user has not favorited
var ErrFavoriteNotFound = errors.New("favorite not found")

// Store is the durable storage the word service works against
type Store interface {
	repository.WordRepository
	repository.HistoryRepository
	repository.FavoriteRepository
}

// Enricher looks words up in an external dictionary
type Enricher interface {
	Lookup(ctx context.Context, word string) (*models.Lookup, error)
}

// WordService provides business logic for word operations
type WordService struct {
	store      Store
	cache      cache.WordCache
	dictionary Enricher
	logger     logrus.FieldLogger
}

// NewWordService creates a new word service
func NewWordService(store Store, wordCache cache.WordCache, dictionary Enricher, logger logrus.FieldLogger) *WordService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WordService{
		store:      store,
		cache:      wordCache,
		dictionary: dictionary,
		logger:     logger,
	}
}

// NormalizeWord lowercases and trims a word the way lookups and imports key it
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Resolve returns the entry of a word, reporting whether it came from the
// cache. A read has side effects: a cache miss populates the cache and bumps
// the word's search counter, a word unknown to the store is fetched from the
// dictionary and persisted, and a placeholder is filled in. Every successful
// resolution is recorded in the user's history when userID is set.
//
// Unknown words yield ErrWordNotFound and leave no trace. Dictionary failures
// yield ErrEnrichmentUnavailable.
func (s *WordService) Resolve(ctx context.Context, word, userID string) (*models.WordEntry, models.CacheStatus, error) {
	word = NormalizeWord(word)
	if word == "" {
		return nil, "", ErrWordNotFound
	}
	key := cache.Key(word)
	log := s.logger.WithField("word", word)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		log.WithError(err).Warn("cache read failed, treating as miss")
	}
	if cached != nil {
		if err := s.recordHistory(ctx, userID, cached.ID); err != nil {
			return nil, "", err
		}
		return cached, models.CacheHit, nil
	}

	entry, err := s.store.GetByWord(ctx, word)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if entry, err = s.createEntry(ctx, word); err != nil {
			return nil, "", err
		}
	case err != nil:
		return nil, "", fmt.Errorf("failed to load word: %w", err)
	case !entry.Enriched():
		log.Debug("filling in placeholder entry")
		if entry, err = s.enrich(ctx, word); err != nil {
			return nil, "", err
		}
	}

	if err := s.store.IncrementSearchCount(ctx, entry.ID); err != nil {
		log.WithError(err).Warn("failed to increment search count")
	} else {
		entry.SearchCount++
	}

	if err := s.cache.Set(ctx, key, entry); err != nil {
		log.WithError(err).Warn("cache write failed")
	}

	if err := s.recordHistory(ctx, userID, entry.ID); err != nil {
		return nil, "", err
	}
	return entry, models.CacheMiss, nil
}

// createEntry enriches a word unknown to the store and persists it. Losing
// the insert race to a concurrent resolution is not an error.
func (s *WordService) createEntry(ctx context.Context, word string) (*models.WordEntry, error) {
	built, err := s.build(ctx, word)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, built)
	if errors.Is(err, repository.ErrDuplicateWord) {
		existing, err := s.store.GetByWord(ctx, word)
		if err != nil {
			return nil, fmt.Errorf("failed to reload word: %w", err)
		}
		if !existing.Enriched() {
			return s.fill(ctx, built)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store word: %w", err)
	}
	return created, nil
}

// enrich fills in a stored placeholder from the dictionary
func (s *WordService) enrich(ctx context.Context, word string) (*models.WordEntry, error) {
	built, err := s.build(ctx, word)
	if err != nil {
		return nil, err
	}
	return s.fill(ctx, built)
}

func (s *WordService) fill(ctx context.Context, built *models.WordEntry) (*models.WordEntry, error) {
	if _, err := s.store.UpsertWords(ctx, []*models.WordEntry{built}); err != nil {
		return nil, fmt.Errorf("failed to fill in word: %w", err)
	}
	entry, err := s.store.GetByWord(ctx, built.Word)
	if err != nil {
		return nil, fmt.Errorf("failed to reload word: %w", err)
	}
	return entry, nil
}

func (s *WordService) build(ctx context.Context, word string) (*models.WordEntry, error) {
	lookup, err := s.dictionary.Lookup(ctx, word)
	if err != nil {
		return nil, err
	}
	return BuildEntry(word, lookup)
}

func (s *WordService) recordHistory(ctx context.Context, userID, wordID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.store.CreateHistory(ctx, &models.HistoryRecord{UserID: userID, WordID: wordID})
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// ListWords pages through the catalog in insertion order, optionally
// filtered to words containing search
func (s *WordService) ListWords(ctx context.Context, search, cursor string, limit int) (*pagination.Page[string], error) {
	search = NormalizeWord(search)
	src := pagination.SourceFuncs[pagination.CatalogKey, models.CatalogItem]{
		FetchFunc: func(ctx context.Context, after *pagination.CatalogKey, n int) ([]models.CatalogItem, error) {
			return s.store.ListAfter(ctx, search, after, n)
		},
		CountFunc: func(ctx context.Context) (int64, error) {
			return s.store.Count(ctx, search)
		},
		KeyFunc: func(item models.CatalogItem) pagination.CatalogKey {
			return pagination.CatalogKey{ID: item.ID}
		},
	}
	return pagination.Paginate[pagination.CatalogKey, models.CatalogItem, string](
		ctx, pagination.Request{Cursor: cursor, Limit: limit}, src,
		func(item models.CatalogItem) string { return item.Word },
	)
}

// History pages through the user's searches, newest first
func (s *WordService) History(ctx context.Context, userID, cursor string, limit int) (*pagination.Page[models.WordActivity], error) {
	return s.timeline(ctx, cursor, limit,
		func(ctx context.Context, after *pagination.TimelineKey, n int) ([]models.TimelineItem, error) {
			return s.store.ListHistory(ctx, userID, after, n)
		},
		func(ctx context.Context) (int64, error) {
			return s.store.CountHistory(ctx, userID)
		},
	)
}

// Favorites pages through the user's favorites, newest first
func (s *WordService) Favorites(ctx context.Context, userID, cursor string, limit int) (*pagination.Page[models.WordActivity], error) {
	return s.timeline(ctx, cursor, limit,
		func(ctx context.Context, after *pagination.TimelineKey, n int) ([]models.TimelineItem, error) {
			return s.store.ListFavorites(ctx, userID, after, n)
		},
		func(ctx context.Context) (int64, error) {
			return s.store.CountFavorites(ctx, userID)
		},
	)
}

func (s *WordService) timeline(
	ctx context.Context,
	cursor string,
	limit int,
	fetch func(context.Context, *pagination.TimelineKey, int) ([]models.TimelineItem, error),
	count func(context.Context) (int64, error),
) (*pagination.Page[models.WordActivity], error) {
	src := pagination.SourceFuncs[pagination.TimelineKey, models.TimelineItem]{
		FetchFunc: fetch,
		CountFunc: count,
		KeyFunc: func(item models.TimelineItem) pagination.TimelineKey {
			return pagination.TimelineKey{At: item.At, ID: item.ID}
		},
	}
	return pagination.Paginate[pagination.TimelineKey, models.TimelineItem, models.WordActivity](
		ctx, pagination.Request{Cursor: cursor, Limit: limit}, src,
		func(item models.TimelineItem) models.WordActivity {
			return models.WordActivity{Word: item.Word, Added: item.At}
		},
	)
}

// AddFavorite marks a stored word as a favorite of the user. Favoriting a
// word twice returns the existing record.
func (s *WordService) AddFavorite(ctx context.Context, word, userID string) (*models.FavoriteRecord, error) {
	entry, err := s.stored(ctx, word)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetFavorite(ctx, userID, entry.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load favorite: %w", err)
	}

	fav, err := s.store.CreateFavorite(ctx, &models.FavoriteRecord{UserID: userID, WordID: entry.ID})
	if errors.Is(err, repository.ErrDuplicateFavorite) {
		return s.store.GetFavorite(ctx, userID, entry.ID)
	}
	if err != nil {
		return nil, err
	}
	return fav, nil
}

// RemoveFavorite unmarks a favorite
func (s *WordService) RemoveFavorite(ctx context.Context, word, userID string) error {
	entry, err := s.stored(ctx, word)
	if err != nil {
		return err
	}

	fav, err := s.store.GetFavorite(ctx, userID, entry.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFavoriteNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load favorite: %w", err)
	}

	if err := s.store.DeleteFavorite(ctx, fav.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFavoriteNotFound
		}
		return err
	}
	return nil
}

// stored fetches a word from the store without consulting the dictionary
func (s *WordService) stored(ctx context.Context, word string) (*models.WordEntry, error) {
	word = NormalizeWord(word)
	if word == "" {
		return nil, ErrWordNotFound
	}
	entry, err := s.store.GetByWord(ctx, word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrWordNotFound, word)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load word: %w", err)
	}
	return entry, nil
}

// Ping checks the store and the cache
func (s *WordService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
