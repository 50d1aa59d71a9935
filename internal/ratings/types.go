// Package ratings aggregates star ratings per product.
//
// Ratings are not range-checked: any integer, including zero and negative
// values, is accepted and averaged.
package ratings

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/shopspring/decimal"
)

// Aggregate is the running (total, count) of one product's ratings.
type Aggregate struct {
	Total int64 `json:"total"`
	Count int64 `json:"count"`
}

// Average returns Total / Count, or 0 when nothing has been submitted.
func (a Aggregate) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Total) / float64(a.Count)
}

// Store records ratings and reports running averages.
type Store interface {
	// Submit adds rating to product's aggregate and returns the new average.
	Submit(ctx context.Context, product string, rating int64) (float64, error)

	// Get returns product's aggregate; ok is false if it has no ratings.
	Get(ctx context.Context, product string) (agg Aggregate, ok bool, err error)

	// All returns every product's aggregate.
	All(ctx context.Context) (map[string]Aggregate, error)

	Close() error
}

// ValidateProduct trims product and rejects an empty name.
func ValidateProduct(product string) (string, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return "", apperrors.Validation("product is required")
	}
	return product, nil
}

// ParseRating accepts a JSON integer (or a number with no fractional part)
// or a JSON string holding an integer. Anything else, including a missing
// value, is a validation error.
func ParseRating(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, apperrors.Validation("rating is required")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, apperrors.Validation("rating must be an integer")
		}
		text = strings.TrimSpace(text)
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
		return 0, apperrors.Validation("rating must be an integer")
	}

	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsInteger() {
		return 0, apperrors.Validation("rating must be an integer")
	}
	// IntPart wraps silently outside int64.
	if !d.BigInt().IsInt64() {
		return 0, apperrors.Validation("rating is out of range")
	}
	return d.IntPart(), nil
}
