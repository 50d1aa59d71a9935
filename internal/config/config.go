package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Dataset backends.
const (
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendBigQuery = "bigquery"
)

// Ratings backends.
const (
	RatingsMemory = "memory"
	RatingsSQLite = "sqlite"
)

const defaultDatasetFile = "Penjualan warmindo.csv"

type Config struct {
	Port string

	DatasetBackend string
	DatasetPath    string

	GCSBucket string
	GCSObject string

	BQProject string
	BQDataset string
	BQTable   string

	RatingsBackend string
	RatingsDBPath  string

	LogLevel  string
	LogFormat string

	SimilarTopN    int
	PopularTopN    int
	RefreshWorkers int
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port: getEnv("PORT", "8080"),

		DatasetBackend: strings.ToLower(getEnv("DATASET_BACKEND", BackendLocal)),
		DatasetPath:    getEnv("DATASET_PATH", defaultDatasetFile),

		GCSBucket: getEnv("GCS_BUCKET", ""),
		GCSObject: getEnv("GCS_OBJECT", defaultDatasetFile),

		BQProject: getEnv("BQ_PROJECT", ""),
		BQDataset: getEnv("BQ_DATASET", "warmindo"),
		BQTable:   getEnv("BQ_TABLE", "sales"),

		RatingsBackend: strings.ToLower(getEnv("RATINGS_BACKEND", RatingsMemory)),
		RatingsDBPath:  getEnv("RATINGS_DB_PATH", "ratings.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		SimilarTopN:    getEnvInt("SIMILAR_TOP_N", 6),
		PopularTopN:    getEnvInt("POPULAR_TOP_N", 6),
		RefreshWorkers: getEnvInt("REFRESH_WORKERS", 1),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend selection and the settings each backend needs.
func (c Config) Validate() error {
	switch c.DatasetBackend {
	case BackendLocal:
		if c.DatasetPath == "" {
			return fmt.Errorf("config: DATASET_PATH is required for the %s backend", BackendLocal)
		}
	case BackendGCS:
		if c.GCSBucket == "" || c.GCSObject == "" {
			return fmt.Errorf("config: GCS_BUCKET and GCS_OBJECT are required for the %s backend", BackendGCS)
		}
	case BackendBigQuery:
		if c.BQProject == "" || c.BQDataset == "" || c.BQTable == "" {
			return fmt.Errorf("config: BQ_PROJECT, BQ_DATASET and BQ_TABLE are required for the %s backend", BackendBigQuery)
		}
	default:
		return fmt.Errorf("config: unknown DATASET_BACKEND %q (want local, gcs or bigquery)", c.DatasetBackend)
	}

	switch c.RatingsBackend {
	case RatingsMemory:
	case RatingsSQLite:
		if c.RatingsDBPath == "" {
			return fmt.Errorf("config: RATINGS_DB_PATH is required for the %s ratings backend", RatingsSQLite)
		}
	default:
		return fmt.Errorf("config: unknown RATINGS_BACKEND %q (want memory or sqlite)", c.RatingsBackend)
	}

	if c.SimilarTopN < 1 || c.PopularTopN < 1 {
		return fmt.Errorf("config: SIMILAR_TOP_N and POPULAR_TOP_N must be positive")
	}
	if c.RefreshWorkers < 1 {
		return fmt.Errorf("config: REFRESH_WORKERS must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
