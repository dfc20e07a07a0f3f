package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/lehmann314159/lexicon/internal/models"
	"github.com/lehmann314159/lexicon/internal/pagination"
)

const wordColumns = `id, word, details, definition, example, etymology, synonyms, antonyms,
	part_of_speech, search_count, created_at, updated_at`

// SQLiteRepository implements the word, history and favorite repositories using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// newID returns a time-ordered identifier so that id order follows insertion order
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// isUniqueConstraintErr returns true when the error indicates a unique constraint violation
func isUniqueConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// Create inserts a new word and returns the created word with ID
func (r *SQLiteRepository) Create(ctx context.Context, word *models.WordEntry) (*models.WordEntry, error) {
	if word.ID == "" {
		word.ID = newID()
	}

	synonyms, antonyms, err := marshalLists(word)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO words (id, word, details, definition, example, etymology, synonyms, antonyms,
		 part_of_speech, search_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		word.ID, word.Word, nullRaw(word.Details), word.Definition, word.Example, word.Etymology,
		synonyms, antonyms, word.PartOfSpeech, word.SearchCount, now, now,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, fmt.Errorf("insert word %q: %w", word.Word, ErrDuplicateWord)
		}
		return nil, fmt.Errorf("failed to insert word: %w", err)
	}

	word.CreatedAt = now
	word.UpdatedAt = now
	return word, nil
}

// GetByID retrieves a word by its ID
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.WordEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+wordColumns+` FROM words WHERE id = ?`, id)
	return scanWord(row)
}

// GetByWord retrieves a word by the word text itself
func (r *SQLiteRepository) GetByWord(ctx context.Context, word string) (*models.WordEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+wordColumns+` FROM words WHERE word = ?`, word)
	return scanWord(row)
}

// IncrementSearchCount adds one to the search counter of a word
func (r *SQLiteRepository) IncrementSearchCount(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE words SET search_count = search_count + 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment search count: %w", err)
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

// UpsertWords writes all words in a single statement. Existing words keep
// their id, counter and created_at; enrichment fields and updated_at are
// replaced.
func (r *SQLiteRepository) UpsertWords(ctx context.Context, words []*models.WordEntry) (int64, error) {
	if len(words) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	placeholders := make([]string, 0, len(words))
	args := make([]interface{}, 0, len(words)*11)

	for _, w := range words {
		if w.ID == "" {
			w.ID = newID()
		}
		synonyms, antonyms, err := marshalLists(w)
		if err != nil {
			return 0, err
		}
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			w.ID, w.Word, nullRaw(w.Details), w.Definition, w.Example, w.Etymology,
			synonyms, antonyms, w.PartOfSpeech, now, now,
		)
	}

	query := `INSERT INTO words (id, word, details, definition, example, etymology, synonyms, antonyms,
		 part_of_speech, created_at, updated_at)
		 VALUES ` + strings.Join(placeholders, ", ") + `
		 ON CONFLICT(word) DO UPDATE SET
		   details = excluded.details,
		   definition = excluded.definition,
		   example = excluded.example,
		   etymology = excluded.etymology,
		   synonyms = excluded.synonyms,
		   antonyms = excluded.antonyms,
		   part_of_speech = excluded.part_of_speech,
		   updated_at = excluded.updated_at`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert words: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// InsertPlaceholders inserts unenriched words, ignoring those already stored
func (r *SQLiteRepository) InsertPlaceholders(ctx context.Context, words []string) (int64, error) {
	if len(words) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	placeholders := make([]string, 0, len(words))
	args := make([]interface{}, 0, len(words)*4)
	for _, w := range words {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, newID(), w, now, now)
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO words (id, word, created_at, updated_at) VALUES `+
			strings.Join(placeholders, ", ")+` ON CONFLICT(word) DO NOTHING`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert placeholders: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ListAfter retrieves catalog rows in id order, starting strictly after the key
func (r *SQLiteRepository) ListAfter(ctx context.Context, search string, after *pagination.CatalogKey, limit int) ([]models.CatalogItem, error) {
	conditions, args := catalogConditions(search)
	if after != nil {
		conditions = append(conditions, "id > ?")
		args = append(args, after.ID)
	}

	query := `SELECT id, word FROM words`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var items []models.CatalogItem
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ID, &item.Word); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// Count returns the total number of words matching the search filter
func (r *SQLiteRepository) Count(ctx context.Context, search string) (int64, error) {
	conditions, args := catalogConditions(search)
	query := "SELECT COUNT(*) FROM words"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return count, nil
}

// Ping checks the connection and that the words table is readable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM words LIMIT 1`).Scan(&n); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("words table unavailable: %w", err)
	}
	return nil
}

// catalogConditions builds the substring filter of the catalog listing
func catalogConditions(search string) ([]string, []interface{}) {
	if search == "" {
		return nil, nil
	}
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return []string{`word LIKE ? ESCAPE '\'`}, []interface{}{"%" + escaper.Replace(strings.ToLower(search)) + "%"}
}

func marshalLists(w *models.WordEntry) (string, string, error) {
	synonyms := w.Synonyms
	if synonyms == nil {
		synonyms = []string{}
	}
	antonyms := w.Antonyms
	if antonyms == nil {
		antonyms = []string{}
	}

	s, err := json.Marshal(synonyms)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal synonyms: %w", err)
	}
	a, err := json.Marshal(antonyms)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal antonyms: %w", err)
	}
	return string(s), string(a), nil
}

func nullRaw(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// scanWord scans a single row into a WordEntry
func scanWord(row *sql.Row) (*models.WordEntry, error) {
	var word models.WordEntry
	var details, definition, example, etymology, partOfSpeech sql.NullString
	var synonyms, antonyms string

	err := row.Scan(
		&word.ID, &word.Word, &details, &definition, &example, &etymology,
		&synonyms, &antonyms, &partOfSpeech, &word.SearchCount,
		&word.CreatedAt, &word.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan word: %w", err)
	}

	if details.Valid {
		word.Details = json.RawMessage(details.String)
	}
	word.Definition = nullStringPtr(definition)
	word.Example = nullStringPtr(example)
	word.Etymology = nullStringPtr(etymology)
	word.PartOfSpeech = nullStringPtr(partOfSpeech)

	if err := json.Unmarshal([]byte(synonyms), &word.Synonyms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal synonyms: %w", err)
	}
	if err := json.Unmarshal([]byte(antonyms), &word.Antonyms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal antonyms: %w", err)
	}

	return &word, nil
}
