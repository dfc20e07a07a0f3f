package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lehmann314159/lexicon/internal/cache"
	"github.com/lehmann314159/lexicon/internal/config"
	"github.com/lehmann314159/lexicon/internal/logging"
	"github.com/lehmann314159/lexicon/internal/repository"
	"github.com/lehmann314159/lexicon/internal/services"
)

// app holds the process-wide dependencies shared by the commands
type app struct {
	cfg        *config.Config
	logger     *logrus.Logger
	db         *sql.DB
	repo       *repository.SQLiteRepository
	dictionary *services.DictionaryService
	closers    []func() error
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Logger)

	db, err := repository.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.WithField("path", cfg.Database.Path).Info("database ready")

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		repo:    repository.NewSQLiteRepository(db),
		closers: []func() error{db.Close},
	}
	a.dictionary = services.NewDictionaryService(services.DictionaryOptions{
		BaseURL:         cfg.Dictionary.BaseURL,
		Timeout:         cfg.Dictionary.Timeout,
		Retry:           a.retryPolicy(),
		BreakerFailures: cfg.Dictionary.BreakerFailures,
		Logger:          logger,
	})
	return a, nil
}

func (a *app) retryPolicy() services.RetryPolicy {
	return services.RetryPolicy{
		MaxRetries: a.cfg.Dictionary.MaxRetries,
		Delay:      a.cfg.Dictionary.RetryDelay,
	}
}

// newCache builds the configured word cache
func (a *app) newCache(ctx context.Context) (cache.WordCache, error) {
	switch a.cfg.Cache.Driver {
	case "redis":
		rc, err := cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		a.logger.WithField("addr", a.cfg.Redis.Addr).Info("using redis cache")
		return cache.NewRedisCache(rc, a.cfg.Cache.TTL), nil
	default:
		a.logger.WithField("size", a.cfg.Cache.Size).Info("using in-memory cache")
		return cache.NewMemoryCache(a.cfg.Cache.Size, a.cfg.Cache.TTL)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("failed to close resource")
		}
	}
}
