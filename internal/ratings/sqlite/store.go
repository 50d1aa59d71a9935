// Package sqlite persists rating aggregates in a SQLite database so they
// survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/dvloznov/warmindo-recommender/internal/ratings"
)

const schema = `
CREATE TABLE IF NOT EXISTS ratings (
  product TEXT PRIMARY KEY,
  total INTEGER NOT NULL,
  count INTEGER NOT NULL
);`

// Store is a SQLite-backed ratings.Store. Each submission is a single
// upsert, so concurrent submissions never lose an update.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.Open: mkdir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite.Open: journal mode: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqlite.Open: schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Submit implements the ratings.Store interface.
func (s *Store) Submit(ctx context.Context, product string, rating int64) (float64, error) {
	product, err := ratings.ValidateProduct(product)
	if err != nil {
		return 0, err
	}

	var agg ratings.Aggregate
	err = s.conn.QueryRowContext(ctx, `
INSERT INTO ratings (product, total, count) VALUES (?, ?, 1)
ON CONFLICT(product) DO UPDATE SET total = total + excluded.total, count = count + 1
RETURNING total, count`, product, rating).Scan(&agg.Total, &agg.Count)
	if err != nil {
		return 0, apperrors.Persistence("submit rating", err)
	}
	return agg.Average(), nil
}

// Get implements the ratings.Store interface.
func (s *Store) Get(ctx context.Context, product string) (ratings.Aggregate, bool, error) {
	var agg ratings.Aggregate
	err := s.conn.QueryRowContext(ctx, `SELECT total, count FROM ratings WHERE product = ?`, product).
		Scan(&agg.Total, &agg.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return ratings.Aggregate{}, false, nil
	}
	if err != nil {
		return ratings.Aggregate{}, false, apperrors.Persistence("get rating", err)
	}
	return agg, true, nil
}

// All implements the ratings.Store interface.
func (s *Store) All(ctx context.Context) (map[string]ratings.Aggregate, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT product, total, count FROM ratings`)
	if err != nil {
		return nil, apperrors.Persistence("list ratings", err)
	}
	defer rows.Close()

	out := make(map[string]ratings.Aggregate)
	for rows.Next() {
		var product string
		var agg ratings.Aggregate
		if err := rows.Scan(&product, &agg.Total, &agg.Count); err != nil {
			return nil, apperrors.Persistence("scan rating", err)
		}
		out[product] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("list ratings", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

var _ ratings.Store = (*Store)(nil)
