package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lehmann314159/lexicon/internal/models"
	"github.com/lehmann314159/lexicon/internal/pagination"
)

// timestampLayout is fixed width so that text comparison in SQL matches
// chronological order down to the nanosecond.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// CreateHistory records a search
func (r *SQLiteRepository) CreateHistory(ctx context.Context, record *models.HistoryRecord) (*models.HistoryRecord, error) {
	if record.ID == "" {
		record.ID = newID()
	}
	if record.SearchedAt.IsZero() {
		record.SearchedAt = time.Now()
	}
	record.SearchedAt = record.SearchedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO history (id, user_id, word_id, searched_at) VALUES (?, ?, ?, ?)`,
		record.ID, record.UserID, record.WordID, formatTimestamp(record.SearchedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history: %w", err)
	}
	return record, nil
}

// ListHistory returns a user's searches, newest first
func (r *SQLiteRepository) ListHistory(ctx context.Context, userID string, after *pagination.TimelineKey, limit int) ([]models.TimelineItem, error) {
	return r.listTimeline(ctx, "history", "searched_at", userID, after, limit)
}

// CountHistory returns the number of searches made by a user
func (r *SQLiteRepository) CountHistory(ctx context.Context, userID string) (int64, error) {
	return r.countByUser(ctx, "history", userID)
}

// GetFavorite retrieves the favorite of a user for a word
func (r *SQLiteRepository) GetFavorite(ctx context.Context, userID, wordID string) (*models.FavoriteRecord, error) {
	var fav models.FavoriteRecord
	var favoritedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, word_id, favorited_at FROM favorites WHERE user_id = ? AND word_id = ?`,
		userID, wordID,
	).Scan(&fav.ID, &fav.UserID, &fav.WordID, &favoritedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan favorite: %w", err)
	}

	if fav.FavoritedAt, err = parseTimestamp(favoritedAt); err != nil {
		return nil, err
	}
	return &fav, nil
}

// CreateFavorite inserts a favorite
func (r *SQLiteRepository) CreateFavorite(ctx context.Context, record *models.FavoriteRecord) (*models.FavoriteRecord, error) {
	if record.ID == "" {
		record.ID = newID()
	}
	if record.FavoritedAt.IsZero() {
		record.FavoritedAt = time.Now()
	}
	record.FavoritedAt = record.FavoritedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, word_id, favorited_at) VALUES (?, ?, ?, ?)`,
		record.ID, record.UserID, record.WordID, formatTimestamp(record.FavoritedAt),
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, ErrDuplicateFavorite
		}
		return nil, fmt.Errorf("failed to insert favorite: %w", err)
	}
	return record, nil
}

// DeleteFavorite removes a favorite by ID
func (r *SQLiteRepository) DeleteFavorite(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListFavorites returns a user's favorites, most recent first
func (r *SQLiteRepository) ListFavorites(ctx context.Context, userID string, after *pagination.TimelineKey, limit int) ([]models.TimelineItem, error) {
	return r.listTimeline(ctx, "favorites", "favorited_at", userID, after, limit)
}

// CountFavorites returns the number of favorites of a user
func (r *SQLiteRepository) CountFavorites(ctx context.Context, userID string) (int64, error) {
	return r.countByUser(ctx, "favorites", userID)
}

// listTimeline pages through a per-user table ordered by (timestamp DESC, id ASC).
// table and tsColumn are constants chosen by the callers above.
func (r *SQLiteRepository) listTimeline(ctx context.Context, table, tsColumn, userID string, after *pagination.TimelineKey, limit int) ([]models.TimelineItem, error) {
	query := fmt.Sprintf(
		`SELECT t.id, t.%[2]s, w.word FROM %[1]s t JOIN words w ON w.id = t.word_id WHERE t.user_id = ?`,
		table, tsColumn,
	)
	args := []interface{}{userID}

	if after != nil {
		at := formatTimestamp(after.At)
		query += fmt.Sprintf(` AND (t.%[1]s < ? OR (t.%[1]s = ? AND t.id > ?))`, tsColumn)
		args = append(args, at, at, after.ID)
	}

	query += fmt.Sprintf(` ORDER BY t.%s DESC, t.id ASC LIMIT ?`, tsColumn)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var items []models.TimelineItem
	for rows.Next() {
		var item models.TimelineItem
		var at string
		if err := rows.Scan(&item.ID, &at, &item.Word); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if item.At, err = parseTimestamp(at); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) countByUser(ctx context.Context, table, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = ?`, table), userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
