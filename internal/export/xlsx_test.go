package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/warmindo-recommender/internal/domain"
)

func records() []domain.TransactionRecord {
	return []domain.TransactionRecord{
		{
			ID: 1, InvoiceID: 1, Date: civil.Date{Year: 2022, Month: 10, Day: 1}, CustomerID: 101,
			ProductName: "Es Teh", ProductType: "Minuman", ProductCategory: "minuman", Quantity: 3,
			UnitPrice: decimal.NewFromInt(4000), SaleValue: decimal.NewFromInt(12000),
			PaymentType: "CASH", OrderType: "Dine In",
		},
		{
			ID: 2, InvoiceID: 1, Date: civil.Date{Year: 2022, Month: 10, Day: 1}, CustomerID: 101,
			ProductName: "Kopi Susu", ProductType: "Minuman", ProductCategory: "minuman", Quantity: 1,
			UnitPrice: decimal.RequireFromString("7500.5"), SaleValue: decimal.RequireFromString("7500.5"),
			PaymentType: "CASH", OrderType: "Dine In",
		},
		{
			ID: 3, InvoiceID: 2, Date: civil.Date{Year: 2022, Month: 10, Day: 2}, CustomerID: 102,
			ProductName: "Nasi Goreng", ProductType: "Nasi", ProductCategory: "makanan", Quantity: 2,
			UnitPrice: decimal.NewFromInt(12000), SaleValue: decimal.NewFromInt(24000),
			PaymentType: "QRIS", OrderType: "Take Away",
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, records()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SalesSheet, PopularitySheet}, f.GetSheetList())

	sales, err := f.GetRows(SalesSheet)
	require.NoError(t, err)
	require.Len(t, sales, 4)
	assert.Equal(t, "id", sales[0][0])
	assert.Equal(t, "nilai_penjualan", sales[0][11])
	assert.Equal(t, []string{"2", "1", "10/01/22", "101", "Kopi Susu", "Minuman", "minuman", "1", "7500.5", "CASH", "Dine In", "7500.5"}, sales[2])

	popularity, err := f.GetRows(PopularitySheet)
	require.NoError(t, err)
	require.Len(t, popularity, 4)
	assert.Equal(t, []string{"Minuman", "Es Teh", "3", "75"}, popularity[1])
	assert.Equal(t, []string{"Minuman", "Kopi Susu", "1", "25"}, popularity[2])
	assert.Equal(t, []string{"Nasi", "Nasi Goreng", "2", "100"}, popularity[3])
}

func TestSaveXLSX_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "penjualan.xlsx")
	require.NoError(t, SaveXLSX(path, records()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SalesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SalesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
