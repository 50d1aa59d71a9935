// Package app wires configuration to concrete stores and services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/config"
	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/favorites"
	"github.com/dvloznov/warmindo-recommender/internal/jobs"
	jobsinmemory "github.com/dvloznov/warmindo-recommender/internal/jobs/inmemory"
	"github.com/dvloznov/warmindo-recommender/internal/metrics"
	"github.com/dvloznov/warmindo-recommender/internal/ratings"
	ratingsinmemory "github.com/dvloznov/warmindo-recommender/internal/ratings/inmemory"
	ratingssqlite "github.com/dvloznov/warmindo-recommender/internal/ratings/sqlite"
	"github.com/dvloznov/warmindo-recommender/internal/recommend"
	"github.com/dvloznov/warmindo-recommender/internal/storage"
	bqstore "github.com/dvloznov/warmindo-recommender/internal/storage/bigquery"
	gcsstore "github.com/dvloznov/warmindo-recommender/internal/storage/gcs"
	"github.com/dvloznov/warmindo-recommender/internal/storage/local"
)

const refreshQueueSize = 100

// OpenStore returns the dataset backend selected by cfg.DatasetBackend.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DatasetBackend {
	case config.BackendLocal:
		return local.NewStore(cfg.DatasetPath), nil
	case config.BackendGCS:
		store, err := gcsstore.NewStore(ctx, cfg.GCSBucket, cfg.GCSObject)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendBigQuery:
		store, err := bqstore.NewStore(ctx, cfg.BQProject, cfg.BQDataset, cfg.BQTable)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown dataset backend %q", cfg.DatasetBackend)
	}
}

// OpenRatings returns the rating store selected by cfg.RatingsBackend.
func OpenRatings(cfg config.Config) (ratings.Store, error) {
	switch cfg.RatingsBackend {
	case config.RatingsMemory:
		return ratingsinmemory.NewStore(), nil
	case config.RatingsSQLite:
		store, err := ratingssqlite.Open(cfg.RatingsDBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("OpenRatings: unknown ratings backend %q", cfg.RatingsBackend)
	}
}

// RefreshHandler rebuilds engine from the repository's current snapshot.
// Manual refreshes first reload the repository from its store so writes made
// by other processes are picked up; a failed reload is returned for retry.
func RefreshHandler(repo *dataset.Repository, engine *recommend.Engine, logger zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.RefreshSimilarityJob) error {
		if job.Reason == jobs.ReasonManual {
			if err := repo.Reload(ctx); err != nil {
				return fmt.Errorf("RefreshHandler: %w", err)
			}
		}
		stats := Rebuild(repo, engine)
		logger.Info().
			Str("job_id", job.JobID).
			Str("job_type", string(job.Type)).
			Str("reason", job.Reason).
			Int64("record_id", job.RecordID).
			Int("products", stats.Products).
			Int("records", stats.Records).
			Dur("duration", stats.Duration).
			Msg("Similarity table refreshed")
		return nil
	}
}

// Rebuild recomputes the similarity table from repo and records the rebuild metrics.
func Rebuild(repo *dataset.Repository, engine *recommend.Engine) recommend.RebuildStats {
	stats := engine.Rebuild(repo.Records())
	metrics.RecordRebuild(stats.Duration, stats.Products, stats.Records)
	return stats
}

// App holds the wired services of one process.
type App struct {
	Config      config.Config
	Logger      zerolog.Logger
	Store       storage.Store
	Repository  *dataset.Repository
	Engine      *recommend.Engine
	Recommender *recommend.Service
	Ratings     ratings.Store
	Favorites   *favorites.Service
	Jobs        *jobsinmemory.Store
	Queue       *jobsinmemory.Queue
}

// New opens the configured stores, loads the dataset and builds the
// similarity table. A dataset that cannot be loaded is an error.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app.New: open dataset store: %w", err)
	}

	repo := dataset.NewRepository(store)
	start := time.Now()
	if err := repo.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}
	logger.Info().
		Str("backend", cfg.DatasetBackend).
		Int("records", repo.Len()).
		Dur("duration", time.Since(start)).
		Msg("Dataset loaded")

	engine := recommend.NewEngine()
	stats := Rebuild(repo, engine)
	logger.Info().
		Int("products", stats.Products).
		Int("customers", stats.Customers).
		Dur("duration", stats.Duration).
		Msg("Similarity table built")

	ratingStore, err := OpenRatings(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app.New: open ratings store: %w", err)
	}

	jobStore := jobsinmemory.NewStore()
	queue := jobsinmemory.NewQueue(refreshQueueSize, cfg.RefreshWorkers, jobStore)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Repository:  repo,
		Engine:      engine,
		Recommender: recommend.NewService(engine, repo),
		Ratings:     ratingStore,
		Favorites:   favorites.NewService(repo, logger, favorites.WithPublisher(queue)),
		Jobs:        jobStore,
		Queue:       queue,
	}, nil
}

// StartRefreshWorkers starts consuming similarity refresh jobs.
func (a *App) StartRefreshWorkers(ctx context.Context) error {
	return a.Queue.Start(ctx, RefreshHandler(a.Repository, a.Engine, a.Logger))
}

// Close stops the refresh queue and closes the stores.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if err := a.Queue.Stop(ctx); err != nil {
		firstErr = err
	}
	if err := a.Ratings.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.Store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
