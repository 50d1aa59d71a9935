// Package bigquery stores the sales dataset in a BigQuery table.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/dvloznov/warmindo-recommender/internal/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Store is the sales table. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	tableID   string
}

// NewStore creates a store for projectID.datasetID.tableID.
func NewStore(ctx context.Context, projectID, datasetID, tableID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewStore: creating client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID, tableID: tableID}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// FullTableName returns the backtick-quoted table reference for SQL.
func (s *Store) FullTableName() string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, s.tableID)
}

// Load returns every row ordered by id. A missing table is an empty dataset.
func (s *Store) Load(ctx context.Context) ([]domain.TransactionRecord, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			id,
			invoice_id,
			tanggal,
			customer_id,
			nama_produk,
			jenis_produk,
			kategori_produk,
			quantity,
			harga_jual,
			jenis_pembayaran,
			jenis_pesanan,
			nilai_penjualan
		FROM %s
		ORDER BY id
	`, s.FullTableName()))

	it, err := q.Read(ctx)
	if isNotFound(err) {
		return []domain.TransactionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bigquery.Load: query read: %w", err)
	}

	records := []domain.TransactionRecord{}
	for {
		var row SalesRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery.Load: iter next: %w", err)
		}
		rec, err := FromRow(&row)
		if err != nil {
			return nil, fmt.Errorf("bigquery.Load: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append streams one row into the table.
func (s *Store) Append(ctx context.Context, rec domain.TransactionRecord) error {
	inserter := s.table().Inserter()
	if err := inserter.Put(ctx, ToRow(rec)); err != nil {
		return fmt.Errorf("bigquery.Append: inserting row %d: %w", rec.ID, err)
	}
	return nil
}

// EnsureTable creates the sales table from the SalesRow schema. An existing
// table is left as is.
func (s *Store) EnsureTable(ctx context.Context) (created bool, err error) {
	schema, err := bigquery.InferSchema(SalesRow{})
	if err != nil {
		return false, fmt.Errorf("bigquery.EnsureTable: infer schema: %w", err)
	}

	err = s.table().Create(ctx, &bigquery.TableMetadata{
		Name:        s.tableID,
		Description: "Warmindo sales transactions",
		Schema:      schema,
	})
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("bigquery.EnsureTable: create %s: %w", s.FullTableName(), err)
	}
	return true, nil
}

func (s *Store) table() *bigquery.Table {
	return s.client.DatasetInProject(s.projectID, s.datasetID).Table(s.tableID)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

var _ storage.Store = (*Store)(nil)
