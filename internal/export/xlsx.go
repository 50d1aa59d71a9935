// Package export writes the sales dataset to an Excel workbook for
// operators who review sales outside the service.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/dvloznov/warmindo-recommender/internal/recommend"
)

// Sheet names.
const (
	SalesSheet      = "Penjualan"
	PopularitySheet = "Popularitas"
)

var popularityHeader = []string{"jenis_produk", "nama_produk", "quantity", "persentase"}

// Workbook builds a workbook with every record on the sales sheet and the
// full per-category popularity ranking on the popularity sheet.
// The caller must Close the returned file.
func Workbook(records []domain.TransactionRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SalesSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("Workbook: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(PopularitySheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("Workbook: add sheet: %w", err)
	}

	for i, h := range dataset.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SalesSheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(SalesSheet, cell, value)
		}

		set(1, rec.ID)
		set(2, rec.InvoiceID)
		set(3, dataset.FormatDate(rec.Date))
		set(4, rec.CustomerID)
		set(5, rec.ProductName)
		set(6, rec.ProductType)
		set(7, rec.ProductCategory)
		set(8, rec.Quantity)
		set(9, rec.UnitPrice.InexactFloat64())
		set(10, rec.PaymentType)
		set(11, rec.OrderType)
		set(12, rec.SaleValue.InexactFloat64())
	}

	for i, h := range popularityHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(PopularitySheet, cell, h)
	}

	r := 2
	for _, category := range categories(records) {
		for _, p := range recommend.PopularInCategory(records, category, len(records)) {
			for col, value := range []any{category, p.Product, p.Quantity, p.Percentage} {
				cell, _ := excelize.CoordinatesToCellName(col+1, r)
				_ = f.SetCellValue(PopularitySheet, cell, value)
			}
			r++
		}
	}

	return f, nil
}

// WriteXLSX writes the workbook for records to w.
func WriteXLSX(w io.Writer, records []domain.TransactionRecord) error {
	f, err := Workbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook for records to outputPath, creating parent
// directories as needed.
func SaveXLSX(outputPath string, records []domain.TransactionRecord) error {
	f, err := Workbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("SaveXLSX: mkdir: %w", err)
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("SaveXLSX: %w", err)
	}
	return nil
}

func categories(records []domain.TransactionRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		if _, ok := seen[rec.ProductType]; ok {
			continue
		}
		seen[rec.ProductType] = struct{}{}
		out = append(out, rec.ProductType)
	}
	sort.Strings(out)
	return out
}
