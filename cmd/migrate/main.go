// Command migrate copies the sales dataset from one backend to another,
// e.g. seeding a BigQuery table or a GCS object from the local CSV.
// Records already present in the destination (by id) are skipped, so the
// command can be re-run after a partial copy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/app"
	"github.com/dvloznov/warmindo-recommender/internal/config"
	"github.com/dvloznov/warmindo-recommender/internal/logger"
	"github.com/dvloznov/warmindo-recommender/internal/storage"
	bqstore "github.com/dvloznov/warmindo-recommender/internal/storage/bigquery"
)

var (
	from    = flag.String("from", config.BackendLocal, "Source backend (local, gcs, bigquery)")
	to      = flag.String("to", config.BackendBigQuery, "Destination backend (local, gcs, bigquery)")
	dryRun  = flag.Bool("dry-run", false, "Report what would be copied without writing")
	timeout = flag.Duration("timeout", 30*time.Minute, "Overall timeout")
)

// Result summarises one copy run.
type Result struct {
	Source  int
	Copied  int
	Skipped int
}

func main() {
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewWithOptions(cfg.LogLevel, cfg.LogFormat)

	src, dst := strings.ToLower(*from), strings.ToLower(*to)
	if src == dst {
		log.Fatal().Str("backend", src).Msg("Source and destination must differ")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	srcStore, err := openBackend(ctx, cfg, src)
	if err != nil {
		log.Fatal().Err(err).Str("backend", src).Msg("Failed to open source")
	}
	defer srcStore.Close()

	dstStore, err := openBackend(ctx, cfg, dst)
	if err != nil {
		log.Fatal().Err(err).Str("backend", dst).Msg("Failed to open destination")
	}
	defer dstStore.Close()

	if bq, ok := dstStore.(*bqstore.Store); ok && !*dryRun {
		created, err := bq.EnsureTable(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure destination table")
		}
		if created {
			log.Info().Str("table", bq.FullTableName()).Msg("Created destination table")
		}
	}

	log.Info().Str("from", src).Str("to", dst).Bool("dry_run", *dryRun).Msg("Copying dataset")

	res, err := copyRecords(ctx, srcStore, dstStore, *dryRun, log)
	if err != nil {
		log.Fatal().Err(err).Int("copied", res.Copied).Msg("Copy failed")
	}

	if res.Copied == 0 {
		fmt.Println("No new records to copy. Destination is up to date.")
	} else {
		fmt.Printf("Copied %d of %d record(s), skipped %d\n", res.Copied, res.Source, res.Skipped)
	}
}

// openBackend opens the store for backend using the rest of cfg for
// locations.
func openBackend(ctx context.Context, cfg config.Config, backend string) (storage.Store, error) {
	cfg.DatasetBackend = backend
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.OpenStore(ctx, cfg)
}

// copyRecords appends every source record whose id the destination does
// not have yet, in source order.
func copyRecords(ctx context.Context, src, dst storage.Store, dryRun bool, log zerolog.Logger) (Result, error) {
	var res Result

	records, err := src.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("copyRecords: loading source: %w", err)
	}
	res.Source = len(records)

	existing, err := dst.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("copyRecords: loading destination: %w", err)
	}
	present := make(map[int64]bool, len(existing))
	for _, rec := range existing {
		present[rec.ID] = true
	}

	for _, rec := range records {
		if present[rec.ID] {
			log.Debug().Int64("id", rec.ID).Msg("Skipping record already in destination")
			res.Skipped++
			continue
		}
		if !dryRun {
			if err := dst.Append(ctx, rec); err != nil {
				return res, fmt.Errorf("copyRecords: appending record %d: %w", rec.ID, err)
			}
		}
		present[rec.ID] = true
		res.Copied++

		if res.Copied%500 == 0 {
			log.Info().Int("copied", res.Copied).Msg("Progress")
		}
	}

	return res, nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate -from BACKEND -to BACKEND [-dry-run]\n\n")
		flag.PrintDefaults()
	}
}
