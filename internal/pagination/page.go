package pagination

import (
	"context"
	"errors"
	"fmt"
)

const (
	// DefaultLimit is the page size used when a request does not name one
	DefaultLimit = 10
	// MaxLimit caps the page size a client may ask for
	MaxLimit = 100
)

// ErrInvalidPageSize is returned for a non-positive page size
var ErrInvalidPageSize = errors.New("invalid page size")

// Request holds the pagination parameters of a listing call
type Request struct {
	Cursor string
	Limit  int
}

// Page is one window of a listing
type Page[T any] struct {
	Results        []T     `json:"results"`
	TotalCount     int64   `json:"totalDocs"`
	PreviousCursor *string `json:"previous"`
	NextCursor     *string `json:"next"`
	HasNext        bool    `json:"hasNext"`
	HasPrev        bool    `json:"hasPrev"`
}

// Source is an ordered, filterable collection that can be paged through.
// Fetch must return rows strictly after the given key (or from the start of
// the ordering when after is nil), in listing order, at most n of them.
type Source[K Key, T any] interface {
	Fetch(ctx context.Context, after *K, n int) ([]T, error)
	Count(ctx context.Context) (int64, error)
	Key(item T) K
}

// Paginate reads one page from src and projects each row with project
func Paginate[K Key, T any, P any](ctx context.Context, req Request, src Source[K, T], project func(T) P) (*Page[P], error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, req.Limit)
	}
	limit := req.Limit
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var after *K
	if req.Cursor != "" {
		key, err := DecodeCursor[K](req.Cursor)
		if err != nil {
			return nil, err
		}
		after = &key
	}

	rows, err := src.Fetch(ctx, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	page := &Page[P]{
		Results: make([]P, 0, min(len(rows), limit)),
	}

	if len(rows) > limit {
		rows = rows[:limit]
		next, err := EncodeCursor(src.Key(rows[len(rows)-1]))
		if err != nil {
			return nil, err
		}
		page.HasNext = true
		page.NextCursor = &next
	}

	for _, row := range rows {
		page.Results = append(page.Results, project(row))
	}

	if req.Cursor != "" {
		prev := req.Cursor
		page.PreviousCursor = &prev
		page.HasPrev = true
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count page: %w", err)
	}
	page.TotalCount = total

	return page, nil
}

// SourceFuncs adapts plain functions to a Source
type SourceFuncs[K Key, T any] struct {
	FetchFunc func(ctx context.Context, after *K, n int) ([]T, error)
	CountFunc func(ctx context.Context) (int64, error)
	KeyFunc   func(item T) K
}

// Fetch implements Source
func (s SourceFuncs[K, T]) Fetch(ctx context.Context, after *K, n int) ([]T, error) {
	return s.FetchFunc(ctx, after, n)
}

// Count implements Source
func (s SourceFuncs[K, T]) Count(ctx context.Context) (int64, error) {
	return s.CountFunc(ctx)
}

// Key implements Source
func (s SourceFuncs[K, T]) Key(item T) K {
	return s.KeyFunc(item)
}
