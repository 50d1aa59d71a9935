// Package favorites appends customer "favorite" submissions to the sales
// dataset as synthetic transactions.
package favorites

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/dvloznov/warmindo-recommender/internal/jobs"
)

// Dataset is the part of the sales repository the writer needs.
type Dataset interface {
	LookupProduct(name string) (domain.ProductReference, bool)
	NextIDs() (id, invoiceID int64)
	Append(ctx context.Context, rec domain.TransactionRecord) error
}

// Service appends favorite records. Appends are serialised so two
// submissions never receive the same id.
type Service struct {
	mu        sync.Mutex
	dataset   Dataset
	publisher jobs.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used for the record date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublisher sets the queue that receives a similarity refresh job after
// every successful append. Without one the similarity table stays as it was
// until the next restart.
func WithPublisher(p jobs.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates a favorites writer over ds.
func NewService(ds Dataset, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		dataset: ds,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeQuantity parses raw as a positive integer. Anything else,
// including an empty value, zero or a negative number, becomes 1.
func NormalizeQuantity(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// AppendFavorite records one favorite purchase of product. category must be
// present but the stored product type always comes from the product's
// existing records. It returns the record that was persisted.
//
// Errors: Validation when product or category is blank, NotFound when the
// product has never been sold, Persistence when the backing store rejects the
// write (the in-memory dataset is then unchanged).
func (s *Service) AppendFavorite(ctx context.Context, product, category, quantityRaw string) (domain.TransactionRecord, error) {
	quantity := NormalizeQuantity(quantityRaw)

	if strings.TrimSpace(product) == "" || strings.TrimSpace(category) == "" {
		return domain.TransactionRecord{}, apperrors.Validation("Data tidak lengkap")
	}

	name := dataset.CanonicalProductName(product)

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.dataset.LookupProduct(name)
	if !ok {
		return domain.TransactionRecord{}, apperrors.NotFound("Menu tidak ditemukan: " + name)
	}

	id, invoiceID := s.dataset.NextIDs()
	rec := domain.TransactionRecord{
		ID:              id,
		InvoiceID:       invoiceID,
		Date:            civil.DateOf(s.now()),
		CustomerID:      domain.FavoriteCustomerID,
		ProductName:     ref.Name,
		ProductType:     ref.Type,
		ProductCategory: ref.Category,
		Quantity:        quantity,
		UnitPrice:       ref.UnitPrice,
		SaleValue:       ref.UnitPrice.Mul(decimal.NewFromInt(quantity)),
		PaymentType:     domain.FavoritePaymentType,
		OrderType:       domain.FavoriteOrderType,
	}
	if rec.ProductCategory == "" {
		rec.ProductCategory = domain.DefaultProductCategory
	}

	if err := s.dataset.Append(ctx, rec); err != nil {
		return domain.TransactionRecord{}, err
	}

	s.logger.Info().
		Int64("id", rec.ID).
		Int64("invoice_id", rec.InvoiceID).
		Str("product", rec.ProductName).
		Int64("quantity", rec.Quantity).
		Str("sale_value", rec.SaleValue.String()).
		Msg("Favorite appended")

	if s.publisher != nil {
		job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonFavoriteAppended, RecordID: rec.ID}
		if err := s.publisher.PublishRefresh(ctx, job); err != nil {
			// The record is already stored; the table catches up on the next refresh.
			s.logger.Warn().Err(err).Int64("id", rec.ID).Msg("Failed to queue similarity refresh")
		}
	}

	return rec, nil
}
