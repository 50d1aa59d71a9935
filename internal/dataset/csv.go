package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/shopspring/decimal"
)

// Column names of the persisted sales dataset, in file order.
const (
	ColID              = "id"
	ColInvoiceID       = "invoice_id"
	ColDate            = "tanggal"
	ColCustomerID      = "customer_id"
	ColProductName     = "nama_produk"
	ColProductType     = "jenis_produk"
	ColProductCategory = "kategori_produk"
	ColQuantity        = "quantity"
	ColUnitPrice       = "harga_jual"
	ColPaymentType     = "jenis_pembayaran"
	ColOrderType       = "jenis_pesanan"
	ColSaleValue       = "nilai_penjualan"

	// colMenu is accepted on read as an alias of nama_produk.
	colMenu = "menu"
)

// Header is the canonical column order written by Encode.
var Header = []string{
	ColID, ColInvoiceID, ColDate, ColCustomerID, ColProductName, ColProductType,
	ColProductCategory, ColQuantity, ColUnitPrice, ColPaymentType, ColOrderType, ColSaleValue,
}

// DateLayout is the layout used when writing tanggal (MM/DD/YY).
const DateLayout = "01/02/06"

// Accepted on read; "1/2/2006" also matches zero-padded input.
var readDateLayouts = []string{"1/2/2006", "1/2/06", "2006-01-02"}

var requiredColumns = []string{
	ColID, ColInvoiceID, ColDate, ColCustomerID, ColProductName, ColProductType,
	ColQuantity, ColUnitPrice, ColPaymentType, ColOrderType, ColSaleValue,
}

// Decode reads a sales CSV. Columns are located by header name, so extra or
// reordered columns are tolerated. An empty, whitespace-only or header-only
// input yields an empty slice and no error.
func Decode(r io.Reader) ([]domain.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var header []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return []domain.TransactionRecord{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("Decode: reading header: %w", err)
		}
		if !isBlank(row) {
			header = row
			break
		}
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	records := []domain.TransactionRecord{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Decode: reading row: %w", err)
		}
		if isBlank(row) {
			continue
		}

		line, _ := cr.FieldPos(0)
		rec, err := decodeRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("Decode: line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name == colMenu {
			name = ColProductName
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("Decode: missing column %q", name)
		}
	}
	return cols, nil
}

func decodeRow(row []string, cols map[string]int) (domain.TransactionRecord, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec domain.TransactionRecord
	var err error

	if rec.ID, err = parseInt(field(ColID)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColID, err)
	}
	if rec.InvoiceID, err = parseInt(field(ColInvoiceID)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColInvoiceID, err)
	}
	if rec.Date, err = ParseDate(field(ColDate)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColDate, err)
	}
	if rec.CustomerID, err = parseInt(field(ColCustomerID)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColCustomerID, err)
	}
	if rec.Quantity, err = parseInt(field(ColQuantity)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColQuantity, err)
	}
	if rec.UnitPrice, err = decimal.NewFromString(field(ColUnitPrice)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColUnitPrice, err)
	}
	if rec.SaleValue, err = decimal.NewFromString(field(ColSaleValue)); err != nil {
		return rec, fmt.Errorf("%s: %w", ColSaleValue, err)
	}

	rec.ProductName = CanonicalProductName(field(ColProductName))
	rec.ProductType = field(ColProductType)
	rec.ProductCategory = field(ColProductCategory)
	if rec.ProductCategory == "" {
		rec.ProductCategory = domain.DefaultProductCategory
	}
	rec.PaymentType = field(ColPaymentType)
	rec.OrderType = field(ColOrderType)

	return rec, nil
}

// parseInt accepts "12" and the float spelling "12.0" that spreadsheet exports produce.
func parseInt(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return d.IntPart(), nil
}

// ParseDate parses tanggal in any of the accepted layouts.
func ParseDate(s string) (civil.Date, error) {
	for _, layout := range readDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("invalid date %q", s)
}

// FormatDate renders d as MM/DD/YY.
func FormatDate(d civil.Date) string {
	return d.In(time.UTC).Format(DateLayout)
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// EncodeRecord renders rec as a CSV row in Header order.
func EncodeRecord(rec domain.TransactionRecord) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		strconv.FormatInt(rec.InvoiceID, 10),
		FormatDate(rec.Date),
		strconv.FormatInt(rec.CustomerID, 10),
		rec.ProductName,
		rec.ProductType,
		rec.ProductCategory,
		strconv.FormatInt(rec.Quantity, 10),
		rec.UnitPrice.String(),
		rec.PaymentType,
		rec.OrderType,
		rec.SaleValue.String(),
	}
}

// Encode writes the header followed by every record.
func Encode(w io.Writer, records []domain.TransactionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("Encode: writing header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(EncodeRecord(rec)); err != nil {
			return fmt.Errorf("Encode: writing record %d: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("Encode: flush: %w", err)
	}
	return nil
}

// RecordLine returns the bytes to append after existing content so that rec
// becomes the last row. withHeader is set when the target is empty;
// needNewline when the existing content does not end with a line break.
func RecordLine(rec domain.TransactionRecord, withHeader, needNewline bool) ([]byte, error) {
	var buf bytes.Buffer
	if needNewline {
		buf.WriteString("\n")
	}

	cw := csv.NewWriter(&buf)
	if withHeader {
		if err := cw.Write(Header); err != nil {
			return nil, fmt.Errorf("RecordLine: writing header: %w", err)
		}
	}
	if err := cw.Write(EncodeRecord(rec)); err != nil {
		return nil, fmt.Errorf("RecordLine: writing record: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("RecordLine: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// AppendRecord returns existing with rec appended as a new row.
func AppendRecord(existing []byte, rec domain.TransactionRecord) ([]byte, error) {
	withHeader := len(bytes.TrimSpace(existing)) == 0
	if withHeader {
		existing = nil
	}
	needNewline := len(existing) > 0 && existing[len(existing)-1] != '\n'

	line, err := RecordLine(rec, withHeader, needNewline)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(existing)+len(line))
	out = append(out, existing...)
	return append(out, line...), nil
}
