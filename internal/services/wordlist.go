package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrSourceUnavailable is returned when the word list cannot be downloaded
var ErrSourceUnavailable = errors.New("word list unavailable")

var lettersOnly = regexp.MustCompile(`^[A-Za-z]+$`)

// WordListSource downloads a newline-delimited word list
type WordListSource struct {
	client *http.Client
	url    string
	retry  RetryPolicy
	logger logrus.FieldLogger
}

// NewWordListSource creates a word list source for url
func NewWordListSource(client *http.Client, url string, policy RetryPolicy, logger logrus.FieldLogger) *WordListSource {
	if client == nil {
		client = &http.Client{Timeout: 5 * defaultTimeout}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WordListSource{client: client, url: url, retry: policy, logger: logger}
}

// Fetch downloads the list and returns its normalized words
func (s *WordListSource) Fetch(ctx context.Context) ([]string, error) {
	body, err := retry(ctx, s.retry, s.logger.WithField("url", s.url), "wordlist", func() (string, error) {
		return s.download(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return NormalizeWords(strings.Split(body, "\n")), nil
}

func (s *WordListSource) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch word list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("word list returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read word list: %w", err)
	}
	return string(data), nil
}

// NormalizeWords trims and lowercases tokens, keeping only purely alphabetic
// ones. Duplicates are dropped, keeping the first occurrence.
func NormalizeWords(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	words := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if !lettersOnly.MatchString(token) {
			continue
		}
		token = strings.ToLower(token)
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		words = append(words, token)
	}
	return words
}
