package bigquery

import (
	"fmt"
	"math/big"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/shopspring/decimal"
)

// numericScale is the fractional precision of a BigQuery NUMERIC column.
const numericScale = 9

// SalesRow is one row of the sales table. Column names match the CSV header.
type SalesRow struct {
	ID              int64      `bigquery:"id"`          // REQUIRED
	InvoiceID       int64      `bigquery:"invoice_id"`  // REQUIRED
	Date            civil.Date `bigquery:"tanggal"`     // REQUIRED DATE
	CustomerID      int64      `bigquery:"customer_id"` // REQUIRED
	ProductName     string     `bigquery:"nama_produk"`
	ProductType     string     `bigquery:"jenis_produk"`
	ProductCategory string     `bigquery:"kategori_produk"`
	Quantity        int64      `bigquery:"quantity"`
	UnitPrice       *big.Rat   `bigquery:"harga_jual"` // NUMERIC
	PaymentType     string     `bigquery:"jenis_pembayaran"`
	OrderType       string     `bigquery:"jenis_pesanan"`
	SaleValue       *big.Rat   `bigquery:"nilai_penjualan"` // NUMERIC
}

// ToRow maps a domain record onto the table schema.
func ToRow(rec domain.TransactionRecord) *SalesRow {
	return &SalesRow{
		ID:              rec.ID,
		InvoiceID:       rec.InvoiceID,
		Date:            rec.Date,
		CustomerID:      rec.CustomerID,
		ProductName:     rec.ProductName,
		ProductType:     rec.ProductType,
		ProductCategory: rec.ProductCategory,
		Quantity:        rec.Quantity,
		UnitPrice:       rec.UnitPrice.Rat(),
		PaymentType:     rec.PaymentType,
		OrderType:       rec.OrderType,
		SaleValue:       rec.SaleValue.Rat(),
	}
}

// FromRow maps a table row back onto the domain record, applying the same
// canonicalisation as the CSV decoder.
func FromRow(row *SalesRow) (domain.TransactionRecord, error) {
	unitPrice, err := ratToDecimal(row.UnitPrice)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("row %d harga_jual: %w", row.ID, err)
	}
	saleValue, err := ratToDecimal(row.SaleValue)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("row %d nilai_penjualan: %w", row.ID, err)
	}

	category := row.ProductCategory
	if category == "" {
		category = domain.DefaultProductCategory
	}

	return domain.TransactionRecord{
		ID:              row.ID,
		InvoiceID:       row.InvoiceID,
		Date:            row.Date,
		CustomerID:      row.CustomerID,
		ProductName:     dataset.CanonicalProductName(row.ProductName),
		ProductType:     row.ProductType,
		ProductCategory: category,
		Quantity:        row.Quantity,
		UnitPrice:       unitPrice,
		PaymentType:     row.PaymentType,
		OrderType:       row.OrderType,
		SaleValue:       saleValue,
	}, nil
}

func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(r.FloatString(numericScale))
}
