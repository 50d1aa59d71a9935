package storage

import (
	"context"

	"github.com/dvloznov/warmindo-recommender/internal/domain"
)

// Store is a backing store for the sales dataset.
// Implementations: local file, Cloud Storage object, BigQuery table.
type Store interface {
	// Load reads the full dataset in storage order. A store that does not
	// exist yet yields an empty slice and no error.
	Load(ctx context.Context) ([]domain.TransactionRecord, error)

	// Append adds one record after the existing ones.
	Append(ctx context.Context, rec domain.TransactionRecord) error

	// Close releases client resources.
	Close() error
}
