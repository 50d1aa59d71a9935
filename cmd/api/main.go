package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/warmindo-recommender/internal/api"
	"github.com/dvloznov/warmindo-recommender/internal/app"
	"github.com/dvloznov/warmindo-recommender/internal/config"
	"github.com/dvloznov/warmindo-recommender/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	log := logger.NewWithOptions(cfg.LogLevel, cfg.LogFormat)

	ctx := logger.WithContext(context.Background(), log)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}

	// Refresh workers rebuild the similarity table after every favorite write.
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.RefreshWorkers).Msg("Starting similarity refresh workers")
	if err := application.StartRefreshWorkers(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start refresh workers")
	}

	handler := api.NewRouter(api.Dependencies{
		Catalog:     application.Repository,
		Recommender: application.Recommender,
		Ratings:     application.Ratings,
		Favorites:   application.Favorites,
		Engine:      application.Engine,
		JobStore:    application.Jobs,
		Publisher:   application.Queue,
		SimilarTopN: cfg.SimilarTopN,
		PopularTopN: cfg.PopularTopN,
		Logger:      log,
	})

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", *port).
			Str("dataset_backend", cfg.DatasetBackend).
			Str("ratings_backend", cfg.RatingsBackend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancelWorker()

	// Stops the refresh queue (waiting for in-flight rebuilds) and closes the stores.
	if err := application.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	log.Info().Msg("Server exited")
}
