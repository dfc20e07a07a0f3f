package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/lehmann314159/lexicon/internal/models"
)

const (
	dictionaryAPIBaseURL   = "https://api.dictionaryapi.dev/api/v2/entries/en"
	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 10
	maxResponseBytes       = 4 << 20
)

var (
	// ErrWordNotFound is returned when the word is not found in the dictionary
	ErrWordNotFound = errors.New("word not found")

	// ErrEnrichmentUnavailable is returned when the dictionary API fails for any
	// reason other than reporting the word as unknown
	ErrEnrichmentUnavailable = errors.New("dictionary unavailable")
)

// DictionaryOptions configures a DictionaryService
type DictionaryOptions struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryPolicy
	// BreakerFailures is the number of consecutive failed calls that opens
	// the circuit breaker.
	BreakerFailures uint32
	Logger          logrus.FieldLogger
}

// DictionaryService provides dictionary lookup functionality
type DictionaryService struct {
	client  *http.Client
	baseURL string
	retry   RetryPolicy
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
}

// NewDictionaryService creates a new dictionary service
func NewDictionaryService(opts DictionaryOptions) *DictionaryService {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewDictionaryServiceWithClient(&http.Client{Timeout: timeout}, opts)
}

// NewDictionaryServiceWithClient creates a new dictionary service with a custom HTTP client
func NewDictionaryServiceWithClient(client *http.Client, opts DictionaryOptions) *DictionaryService {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = dictionaryAPIBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dictionary",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// An unknown word is a valid answer, not a failure of the API.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrWordNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &DictionaryService{
		client:  client,
		baseURL: baseURL,
		retry:   opts.Retry,
		breaker: breaker,
		logger:  logger,
	}
}

// Lookup fetches the entries of a word from the dictionary API. Transport
// failures are retried according to the retry policy; ErrWordNotFound is
// terminal and returned at once. Every other failure is reported as
// ErrEnrichmentUnavailable.
func (s *DictionaryService) Lookup(ctx context.Context, word string) (*models.Lookup, error) {
	lookup, err := retry(ctx, s.retry, s.logger.WithField("word", word), "dictionary", func() (*models.Lookup, error) {
		res, err := s.breaker.Execute(func() (interface{}, error) {
			return s.fetch(ctx, word)
		})
		if errors.Is(err, ErrWordNotFound) ||
			errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, backoff.Permanent(err)
		}
		if err != nil {
			return nil, err
		}
		return res.(*models.Lookup), nil
	})
	if err != nil {
		if errors.Is(err, ErrWordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}
	return lookup, nil
}

// fetch performs a single API call
func (s *DictionaryService) fetch(ctx context.Context, word string) (*models.Lookup, error) {
	endpoint := fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(word))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch definition: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrWordNotFound, word)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary API returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var entries []models.DictionaryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrWordNotFound, word)
	}

	return &models.Lookup{Entries: entries, Raw: raw}, nil
}

// BuildEntry constructs a word entry from the first candidate's first
// meaning and that meaning's first definition. Fields absent from that path
// are left empty. It returns ErrWordNotFound when no definition exists there.
func BuildEntry(word string, lookup *models.Lookup) (*models.WordEntry, error) {
	if lookup == nil || len(lookup.Entries) == 0 {
		return nil, ErrWordNotFound
	}
	first := lookup.Entries[0]
	if len(first.Meanings) == 0 || len(first.Meanings[0].Definitions) == 0 {
		return nil, fmt.Errorf("%w: %q has no definition", ErrWordNotFound, word)
	}
	meaning := first.Meanings[0]
	def := meaning.Definitions[0]
	if def.Definition == "" {
		return nil, fmt.Errorf("%w: %q has no definition", ErrWordNotFound, word)
	}

	entry := &models.WordEntry{
		Word:         word,
		Details:      lookup.Raw,
		Definition:   optional(def.Definition),
		Example:      optional(def.Example),
		PartOfSpeech: optional(meaning.PartOfSpeech),
		Synonyms:     def.Synonyms,
		Antonyms:     def.Antonyms,
	}

	switch {
	case first.Etymology != "":
		entry.Etymology = optional(first.Etymology)
	case len(first.Etymologies) > 0:
		entry.Etymology = optional(first.Etymologies[0])
	}

	return entry, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
