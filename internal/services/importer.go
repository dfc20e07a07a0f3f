package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lehmann314159/lexicon/internal/models"
	"github.com/lehmann314159/lexicon/internal/repository"
)

// ImporterOptions configures a bulk import run
type ImporterOptions struct {
	BatchSize            int
	PlaceholderBatchSize int
	BatchDelay           time.Duration
	Concurrency          int
	// Placeholders inserts bare words without consulting the dictionary
	Placeholders bool
}

// ImportSummary contains the results of an import run
type ImportSummary struct {
	Total          int           `json:"total"`
	Success        int           `json:"success"`
	NotFound       int           `json:"notFound"`
	Errored        int           `json:"errored"`
	Duration       time.Duration `json:"duration"`
	WordsPerSecond float64       `json:"wordsPerSecond"`
}

// WordLister supplies the words to import
type WordLister interface {
	Fetch(ctx context.Context) ([]string, error)
}

// Importer loads a word list into the store in batches
type Importer struct {
	store      repository.WordRepository
	source     WordLister
	dictionary Enricher
	opts       ImporterOptions
	logger     logrus.FieldLogger
}

// NewImporter creates an importer
func NewImporter(store repository.WordRepository, source WordLister, dictionary Enricher, opts ImporterOptions, logger logrus.FieldLogger) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.PlaceholderBatchSize <= 0 {
		opts.PlaceholderBatchSize = 1000
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Importer{
		store:      store,
		source:     source,
		dictionary: dictionary,
		opts:       opts,
		logger:     logger,
	}
}

// ImportAll downloads the word list and imports it. Failed batches and words
// are counted rather than aborting the run. Cancelling ctx stops the run
// between batches and returns the partial summary along with ctx.Err().
func (imp *Importer) ImportAll(ctx context.Context) (*ImportSummary, error) {
	start := time.Now()

	words, err := imp.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	size := imp.opts.BatchSize
	if imp.opts.Placeholders {
		size = imp.opts.PlaceholderBatchSize
	}
	batches := chunk(words, size)

	imp.logger.WithFields(logrus.Fields{
		"words":        len(words),
		"batches":      len(batches),
		"placeholders": imp.opts.Placeholders,
	}).Info("starting import")

	summary := &ImportSummary{Total: len(words)}
	var runErr error

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		batchStart := time.Now()
		res := imp.importBatch(ctx, batch)
		summary.Success += res.Success
		summary.NotFound += res.NotFound
		summary.Errored += res.Errored

		imp.logger.WithFields(logrus.Fields{
			"batch":            i + 1,
			"of":               len(batches),
			"success":          res.Success,
			"not_found":        res.NotFound,
			"errored":          res.Errored,
			"words_per_second": rate(len(batch), time.Since(batchStart)),
		}).Info("batch imported")

		if i < len(batches)-1 && imp.opts.BatchDelay > 0 {
			if err := sleep(ctx, imp.opts.BatchDelay); err != nil {
				runErr = err
				break
			}
		}
	}

	summary.Duration = time.Since(start)
	summary.WordsPerSecond = rate(summary.Success+summary.NotFound+summary.Errored, summary.Duration)

	imp.logger.WithFields(logrus.Fields{
		"total":            summary.Total,
		"success":          summary.Success,
		"not_found":        summary.NotFound,
		"errored":          summary.Errored,
		"duration":         summary.Duration.Round(time.Millisecond).String(),
		"words_per_second": summary.WordsPerSecond,
	}).Info("import finished")

	return summary, runErr
}

type batchResult struct {
	Success  int
	NotFound int
	Errored  int
}

func (imp *Importer) importBatch(ctx context.Context, batch []string) batchResult {
	if err := imp.store.Ping(ctx); err != nil {
		imp.logger.WithError(err).WithField("words", len(batch)).Error("store unavailable, skipping batch")
		return batchResult{Errored: len(batch)}
	}

	if imp.opts.Placeholders {
		if _, err := imp.store.InsertPlaceholders(ctx, batch); err != nil {
			imp.logger.WithError(err).Error("failed to insert placeholders")
			return batchResult{Errored: len(batch)}
		}
		return batchResult{Success: len(batch)}
	}

	entries := make([]*models.WordEntry, len(batch))
	failures := make([]error, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.opts.Concurrency)
	for i, word := range batch {
		g.Go(func() error {
			lookup, err := imp.dictionary.Lookup(gctx, word)
			if err == nil {
				entries[i], err = BuildEntry(word, lookup)
			}
			failures[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var res batchResult
	enriched := make([]*models.WordEntry, 0, len(batch))
	for i, err := range failures {
		switch {
		case err == nil:
			enriched = append(enriched, entries[i])
		case errors.Is(err, ErrWordNotFound):
			res.NotFound++
		default:
			res.Errored++
			imp.logger.WithError(err).WithField("word", batch[i]).Warn("failed to enrich word")
		}
	}

	if len(enriched) == 0 {
		return res
	}
	if _, err := imp.store.UpsertWords(ctx, enriched); err != nil {
		imp.logger.WithError(err).WithField("words", len(enriched)).Error("failed to store batch")
		res.Errored += len(enriched)
		return res
	}
	res.Success += len(enriched)
	return res
}

func chunk(words []string, size int) [][]string {
	batches := make([][]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		batches = append(batches, words[start:end])
	}
	return batches
}

func rate(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("imported %d words in %s: %d stored, %d not found, %d errored (%.1f words/s)",
		s.Total, s.Duration.Round(time.Millisecond), s.Success, s.NotFound, s.Errored, s.WordsPerSecond)
}
