package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/app"
	"github.com/dvloznov/warmindo-recommender/internal/config"
	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/export"
	"github.com/dvloznov/warmindo-recommender/internal/logger"
	bqstore "github.com/dvloznov/warmindo-recommender/internal/storage/bigquery"
	gcsstore "github.com/dvloznov/warmindo-recommender/internal/storage/gcs"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewWithOptions(cfg.LogLevel, cfg.LogFormat)

	switch os.Args[1] {
	case "recommend":
		runRecommend(cfg, log)
	case "popular":
		runPopular(cfg, log)
	case "favorite":
		runFavorite(cfg, log)
	case "categories":
		runCategories(cfg, log)
	case "export":
		runExport(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "bq-init":
		runBQInit(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Warmindo Recommender CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  recommend   List menu items similar to a product within a category")
	fmt.Println("  popular     Show the most ordered products of a category")
	fmt.Println("  favorite    Append a favorite purchase to the dataset")
	fmt.Println("  categories  List product categories in the dataset")
	fmt.Println("  export      Write the dataset and popularity sheets to an XLSX file")
	fmt.Println("  upload      Upload a local dataset CSV to GCS")
	fmt.Println("  bq-init     Create the BigQuery sales table")
	fmt.Println("  help        Show this help message")
	fmt.Println("\nThe dataset backend is taken from DATASET_BACKEND (local, gcs, bigquery).")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// openApp loads the dataset and builds the similarity table.
func openApp(ctx context.Context, cfg config.Config, log zerolog.Logger) *app.App {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}
	return a
}

func closeApp(ctx context.Context, a *app.App, log zerolog.Logger) {
	if err := a.Close(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func runRecommend(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	product := fs.String("product", "", "Product name to find similar items for")
	category := fs.String("category", "", "Restrict recommendations to this category (optional)")
	top := fs.Int("top", cfg.SimilarTopN, "Number of recommendations")
	fs.Parse(os.Args[2:])

	if *product == "" {
		log.Fatal().Msg("Usage: cli recommend -product NAME [-category NAME] [-top N]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, log)
	defer closeApp(ctx, a, log)

	scored := a.Engine.SimilarScored(dataset.CanonicalProductName(*product), *category, *top)
	if len(scored) == 0 {
		fmt.Printf("No recommendations for %q.\n", *product)
		return
	}

	fmt.Printf("\n=== Similar to %s ===\n", *product)
	for i, r := range scored {
		fmt.Printf("%2d. %-30s %.4f\n", i+1, r.Product, r.Score)
	}
}

func runPopular(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("popular", flag.ExitOnError)
	category := fs.String("category", "", "Category to rank")
	top := fs.Int("top", cfg.PopularTopN, "Number of products")
	fs.Parse(os.Args[2:])

	if *category == "" {
		log.Fatal().Msg("Usage: cli popular -category NAME [-top N]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, log)
	defer closeApp(ctx, a, log)

	popular := a.Recommender.RecommendByCategory(*category, *top)
	if len(popular) == 0 {
		fmt.Printf("No sales recorded for %q.\n", *category)
		return
	}

	fmt.Printf("\n=== Popular in %s ===\n", *category)
	for i, p := range popular {
		fmt.Printf("%2d. %-30s %6d  %.2f%%\n", i+1, p.Product, p.Quantity, p.Percentage)
	}
}

func runFavorite(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("favorite", flag.ExitOnError)
	product := fs.String("product", "", "Product name as shown on the menu")
	category := fs.String("category", "", "Category the product was chosen from")
	quantity := fs.String("quantity", "1", "Quantity purchased")
	fs.Parse(os.Args[2:])

	if *product == "" || *category == "" {
		log.Fatal().Msg("Usage: cli favorite -product NAME -category NAME [-quantity N]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, log)
	defer closeApp(ctx, a, log)

	rec, err := a.Favorites.AppendFavorite(ctx, *product, *category, *quantity)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save favorite")
	}

	fmt.Printf("Saved favorite #%d: %d x %s (%s)\n", rec.ID, rec.Quantity, rec.ProductName, rec.SaleValue.String())
}

func runCategories(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, log)
	defer closeApp(ctx, a, log)

	for _, c := range a.Repository.Categories() {
		fmt.Println(c)
	}
}

func runExport(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "warmindo.xlsx", "Output XLSX path")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a := openApp(ctx, cfg, log)
	defer closeApp(ctx, a, log)

	records := a.Repository.Records()
	if err := export.SaveXLSX(*out, records); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d records to %s\n", len(records), *out)
}

func runUpload(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.GCSBucket, "GCS bucket name")
	objectName := fs.String("object", cfg.GCSObject, "GCS object name (defaults to filename)")
	filePath := fs.String("file", cfg.DatasetPath, "Path to local dataset CSV")
	uri := fs.String("uri", "", "Destination as gs://bucket/object (overrides -bucket and -object)")
	fs.Parse(os.Args[2:])

	if *uri != "" {
		bucket, object, err := gcsstore.ParseURI(*uri)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -uri")
		}
		*bucketName, *objectName = bucket, object
	}

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload (-bucket NAME | -uri gs://BUCKET/OBJECT) -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading dataset to GCS")

	if err := gcsstore.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, gcsstore.ObjectURI(*bucketName, *objectName))
}

func runBQInit(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("bq-init", flag.ExitOnError)
	project := fs.String("project", cfg.BQProject, "GCP project ID")
	dataset := fs.String("dataset", cfg.BQDataset, "BigQuery dataset ID")
	table := fs.String("table", cfg.BQTable, "BigQuery table ID")
	fs.Parse(os.Args[2:])

	if *project == "" || *dataset == "" || *table == "" {
		log.Fatal().Msg("Usage: cli bq-init -project ID -dataset ID -table ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := bqstore.NewStore(ctx, *project, *dataset, *table)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer store.Close()

	created, err := store.EnsureTable(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create table")
	}

	if created {
		fmt.Printf("Created %s\n", store.FullTableName())
	} else {
		fmt.Printf("%s already exists\n", store.FullTableName())
	}
}
