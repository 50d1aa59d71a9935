package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Sentinels written on rows produced by the favorite-submission path.
const (
	FavoriteCustomerID  int64 = 9999
	FavoritePaymentType       = "FAVORIT"
	FavoriteOrderType         = "Favorit"

	// DefaultProductCategory is used when a row carries no kategori_produk.
	DefaultProductCategory = "makanan"
)

// TransactionRecord is one row of the sales dataset.
// Records are only ever appended; nothing in this system updates or deletes them.
type TransactionRecord struct {
	ID              int64
	InvoiceID       int64
	Date            civil.Date
	CustomerID      int64
	ProductName     string // canonical title case
	ProductType     string // jenis_produk, used as the recommendation category
	ProductCategory string // kategori_produk (makanan/minuman)
	Quantity        int64
	UnitPrice       decimal.Decimal
	PaymentType     string
	OrderType       string
	SaleValue       decimal.Decimal // UnitPrice * Quantity at write time
}

// ProductReference is the price and classification of a product as first seen
// in the dataset.
type ProductReference struct {
	Name      string
	Type      string
	Category  string
	UnitPrice decimal.Decimal
}

// Reference returns the product reference carried by r.
func (r TransactionRecord) Reference() ProductReference {
	return ProductReference{
		Name:      r.ProductName,
		Type:      r.ProductType,
		Category:  r.ProductCategory,
		UnitPrice: r.UnitPrice,
	}
}
