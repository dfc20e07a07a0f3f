package repository

import (
	"context"
	"errors"

	"github.com/lehmann314159/lexicon/internal/models"
	"github.com/lehmann314159/lexicon/internal/pagination"
)

var (
	// ErrDuplicateWord is returned when inserting a word whose text already exists
	ErrDuplicateWord = errors.New("word already exists")

	// ErrDuplicateFavorite is returned when the user already favorited the word
	ErrDuplicateFavorite = errors.New("favorite already exists")
)

// WordRepository defines the interface for word persistence operations
type WordRepository interface {
	// Create inserts a new word and returns it with its ID and timestamps set.
	// It returns ErrDuplicateWord when the word text is already stored.
	Create(ctx context.Context, word *models.WordEntry) (*models.WordEntry, error)

	// GetByID retrieves a word by its ID
	GetByID(ctx context.Context, id string) (*models.WordEntry, error)

	// GetByWord retrieves a word by the word text itself
	GetByWord(ctx context.Context, word string) (*models.WordEntry, error)

	// IncrementSearchCount atomically adds one to the word's search counter
	IncrementSearchCount(ctx context.Context, id string) error

	// UpsertWords inserts the words, updating enrichment fields of those whose
	// text already exists. It returns the number of rows written.
	UpsertWords(ctx context.Context, words []*models.WordEntry) (int64, error)

	// InsertPlaceholders inserts unenriched rows, leaving existing words untouched
	InsertPlaceholders(ctx context.Context, words []string) (int64, error)

	// ListAfter returns up to limit catalog rows in id order, after the given key
	ListAfter(ctx context.Context, search string, after *pagination.CatalogKey, limit int) ([]models.CatalogItem, error)

	// Count returns the total number of words matching the search filter
	Count(ctx context.Context, search string) (int64, error)

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}

// HistoryRepository defines persistence for search history
type HistoryRepository interface {
	CreateHistory(ctx context.Context, record *models.HistoryRecord) (*models.HistoryRecord, error)
	ListHistory(ctx context.Context, userID string, after *pagination.TimelineKey, limit int) ([]models.TimelineItem, error)
	CountHistory(ctx context.Context, userID string) (int64, error)
}

// FavoriteRepository defines persistence for favorites
type FavoriteRepository interface {
	GetFavorite(ctx context.Context, userID, wordID string) (*models.FavoriteRecord, error)
	// CreateFavorite returns ErrDuplicateFavorite when the pair already exists
	CreateFavorite(ctx context.Context, record *models.FavoriteRecord) (*models.FavoriteRecord, error)
	DeleteFavorite(ctx context.Context, id string) error
	ListFavorites(ctx context.Context, userID string, after *pagination.TimelineKey, limit int) ([]models.TimelineItem, error)
	CountFavorites(ctx context.Context, userID string) (int64, error)
}
