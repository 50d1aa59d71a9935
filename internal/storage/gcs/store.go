// Package gcs stores the sales dataset as a CSV object in Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	appstorage "github.com/dvloznov/warmindo-recommender/internal/storage"
)

const csvContentType = "text/csv; charset=utf-8"

// Store is one CSV object in a bucket. Object storage has no append, so each
// Append is a read-modify-write of the whole object guarded by a generation
// precondition: a concurrent writer makes Append fail instead of losing rows.
type Store struct {
	client *storage.Client
	bucket string
	object string
}

// NewStore creates a store with a shared storage client.
// It assumes Application Default Credentials are configured.
func NewStore(ctx context.Context, bucket, object string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs.NewStore: creating storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket, object: object}, nil
}

// URI returns the gs:// URI of the dataset object.
func (s *Store) URI() string {
	return ObjectURI(s.bucket, s.object)
}

// Close closes the storage client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Load reads and decodes the object. A missing object is an empty dataset.
func (s *Store) Load(ctx context.Context) ([]domain.TransactionRecord, error) {
	data, _, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	records, err := dataset.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gcs.Load: %s: %w", s.URI(), err)
	}
	return records, nil
}

// Append rewrites the object with rec added as the last row.
func (s *Store) Append(ctx context.Context, rec domain.TransactionRecord) error {
	data, generation, err := s.read(ctx)
	if err != nil {
		return err
	}

	updated, err := dataset.AppendRecord(data, rec)
	if err != nil {
		return fmt.Errorf("gcs.Append: %w", err)
	}

	obj := s.client.Bucket(s.bucket).Object(s.object)
	if generation == 0 {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := obj.NewWriter(ctx)
	w.ContentType = csvContentType
	if _, err := w.Write(updated); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs.Append: write %s: %w", s.URI(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs.Append: finalize %s: %w", s.URI(), err)
	}
	return nil
}

// read returns the object bytes and generation; generation 0 means the
// object does not exist.
func (s *Store) read(ctx context.Context) ([]byte, int64, error) {
	rc, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("gcs: reading object %s: %w", s.URI(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("gcs: reading bytes of %s: %w", s.URI(), err)
	}
	return data, rc.Attrs.Generation, nil
}

// UploadFile uploads a local dataset file to bucket/object, replacing any
// existing object.
func UploadFile(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = csvContentType

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// ObjectURI builds "gs://bucket/object".
func ObjectURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ appstorage.Store = (*Store)(nil)
