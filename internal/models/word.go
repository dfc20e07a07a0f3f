package models

import (
	"encoding/json"
	"time"
)

// WordEntry represents a dictionary word stored locally
type WordEntry struct {
	ID           string          `json:"id"`
	Word         string          `json:"word"`
	Details      json.RawMessage `json:"details,omitempty"`
	Definition   *string         `json:"definition"`
	Example      *string         `json:"example,omitempty"`
	Etymology    *string         `json:"etymology,omitempty"`
	Synonyms     []string        `json:"synonyms,omitempty"`
	Antonyms     []string        `json:"antonyms,omitempty"`
	PartOfSpeech *string         `json:"partOfSpeech,omitempty"`
	SearchCount  int64           `json:"searchCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Enriched reports whether the entry carries a definition. Entries inserted
// by a placeholder import have none until their first lookup.
func (w *WordEntry) Enriched() bool {
	return w.Definition != nil && *w.Definition != ""
}

// HistoryRecord is a single search made by a user
type HistoryRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	WordID     string    `json:"wordId"`
	SearchedAt time.Time `json:"searchedAt"`
}

// FavoriteRecord marks a word as a favorite of a user
type FavoriteRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	WordID      string    `json:"wordId"`
	FavoritedAt time.Time `json:"favoritedAt"`
}

// CatalogItem is a row of the word catalog listing
type CatalogItem struct {
	ID   string
	Word string
}

// TimelineItem is a row of the history or favorites listing
type TimelineItem struct {
	ID   string
	Word string
	At   time.Time
}

// WordActivity is the projected form of a TimelineItem returned to clients
type WordActivity struct {
	Word  string    `json:"word"`
	Added time.Time `json:"added"`
}

// CacheStatus tells whether a lookup was served from the cache
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// DictionaryEntry represents a response from the dictionary API
type DictionaryEntry struct {
	Word        string     `json:"word"`
	Phonetic    string     `json:"phonetic,omitempty"`
	Phonetics   []Phonetic `json:"phonetics,omitempty"`
	Origin      string     `json:"origin,omitempty"`
	Etymology   string     `json:"etymology,omitempty"`
	Etymologies []string   `json:"etymologies,omitempty"`
	Meanings    []Meaning  `json:"meanings"`
	SourceURLs  []string   `json:"sourceUrls,omitempty"`
}

// Phonetic represents pronunciation information
type Phonetic struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Meaning represents a word meaning with definitions
type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
	Synonyms     []string     `json:"synonyms,omitempty"`
	Antonyms     []string     `json:"antonyms,omitempty"`
}

// Definition represents a single definition
type Definition struct {
	Definition string   `json:"definition"`
	Example    string   `json:"example,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Antonyms   []string `json:"antonyms,omitempty"`
}

// Lookup is the result of a successful dictionary API call: the decoded
// candidates plus the raw payload they were decoded from.
type Lookup struct {
	Entries []DictionaryEntry
	Raw     json.RawMessage
}
