package dataset

import (
	"context"
	"sort"
	"sync"

	"github.com/dvloznov/warmindo-recommender/internal/domain"
	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/dvloznov/warmindo-recommender/internal/storage"
)

// Repository is the process-wide snapshot of the sales dataset in front of a
// backing store. It is loaded once at startup and kept in step with every
// Append; it is safe for concurrent use.
type Repository struct {
	mu      sync.RWMutex
	store   storage.Store
	records []domain.TransactionRecord
}

// NewRepository creates an empty repository over store. Call Load before use.
func NewRepository(store storage.Store) *Repository {
	return &Repository{store: store}
}

// Load replaces the snapshot with the backing store's content.
// A store failure is a persistence error, never an empty dataset.
func (r *Repository) Load(ctx context.Context) error {
	records, err := r.store.Load(ctx)
	if err != nil {
		return apperrors.Persistence("load dataset", err)
	}

	r.mu.Lock()
	r.records = records
	r.mu.Unlock()
	return nil
}

// Reload re-reads the backing store. It is Load under another name for
// callers that refresh a running repository.
func (r *Repository) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Records returns a copy of the snapshot in storage order.
func (r *Repository) Records() []domain.TransactionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TransactionRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records in the snapshot.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Categories returns the distinct product types, sorted.
func (r *Repository) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, rec := range r.records {
		if rec.ProductType == "" {
			continue
		}
		if _, ok := seen[rec.ProductType]; ok {
			continue
		}
		seen[rec.ProductType] = struct{}{}
		out = append(out, rec.ProductType)
	}
	sort.Strings(out)
	return out
}

// Products returns the distinct canonical product names, sorted.
func (r *Repository) Products() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, rec := range r.records {
		if _, ok := seen[rec.ProductName]; ok {
			continue
		}
		seen[rec.ProductName] = struct{}{}
		out = append(out, rec.ProductName)
	}
	sort.Strings(out)
	return out
}

// LookupProduct returns the reference of the first record, in storage order,
// whose product name equals name. Uniqueness of price per product is not checked.
func (r *Repository) LookupProduct(name string) (domain.ProductReference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ProductName == name {
			return rec.Reference(), true
		}
	}
	return domain.ProductReference{}, false
}

// NextIDs returns the id and invoice_id for a new record: one past the
// maximum of each over all records, not the values on the last row.
// An empty dataset starts at 1.
func (r *Repository) NextIDs() (id, invoiceID int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var maxID, maxInvoice int64
	for _, rec := range r.records {
		if rec.ID > maxID {
			maxID = rec.ID
		}
		if rec.InvoiceID > maxInvoice {
			maxInvoice = rec.InvoiceID
		}
	}
	return maxID + 1, maxInvoice + 1
}

// Append persists rec and then adds it to the snapshot. When persistence
// fails the snapshot is left untouched.
func (r *Repository) Append(ctx context.Context, rec domain.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Append(ctx, rec); err != nil {
		return apperrors.Persistence("append record", err)
	}
	r.records = append(r.records, rec)
	return nil
}
