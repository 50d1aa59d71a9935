// Package local stores the sales dataset as a CSV file on the local disk.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/dvloznov/warmindo-recommender/internal/storage"
)

// Store is a CSV file on disk. Appends are single writes to a file opened
// with O_APPEND, so existing rows are never rewritten.
type Store struct {
	path string
}

// NewStore creates a store for the CSV file at path. The file need not exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decodes the file. A missing file is an empty dataset.
func (s *Store) Load(ctx context.Context) ([]domain.TransactionRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.TransactionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("local.Load: open %q: %w", s.path, err)
	}
	defer f.Close()

	records, err := dataset.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("local.Load: %q: %w", s.path, err)
	}
	return records, nil
}

// Append writes rec as the last row, adding the header when the file is new,
// empty or holds only whitespace.
func (s *Store) Append(ctx context.Context, rec domain.TransactionRecord) error {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("local.Append: open %q: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("local.Append: stat %q: %w", s.path, err)
	}

	size := info.Size()
	blank, err := isBlank(f, size)
	if err != nil {
		return fmt.Errorf("local.Append: scan %q: %w", s.path, err)
	}
	if blank && size > 0 {
		// Whitespace-only files decode as empty; start them over with a header.
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("local.Append: truncate %q: %w", s.path, err)
		}
		size = 0
	}

	needNewline := false
	if size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("local.Append: read tail: %w", err)
		}
		needNewline = last[0] != '\n'
	}

	line, err := dataset.RecordLine(rec, size == 0, needNewline)
	if err != nil {
		return fmt.Errorf("local.Append: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("local.Append: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("local.Append: sync: %w", err)
	}
	return nil
}

// isBlank reports whether the first size bytes of f are all whitespace.
// It stops at the first other byte, which for a real dataset is byte 0.
func isBlank(f *os.File, size int64) (bool, error) {
	buf := make([]byte, 4096)
	for off := int64(0); off < size; {
		n, err := f.ReadAt(buf, off)
		if len(bytes.TrimSpace(buf[:n])) > 0 {
			return false, nil
		}
		off += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}

// Close is a no-op; files are opened per call.
func (s *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
