package recommend

import (
	"sort"

	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/shopspring/decimal"
)

// Popularity is a product's share of the quantity sold in its category.
type Popularity struct {
	Product    string  `json:"product"`
	Quantity   int64   `json:"quantity"`
	Percentage float64 `json:"percentage"`
}

var hundred = decimal.NewFromInt(100)

// PopularInCategory ranks the products of category by total quantity sold,
// highest first, ties broken by product name. Each percentage is the
// product's share of the whole category (not just the returned top N),
// rounded half-to-even to two decimals. A category with no sales, or with a
// non-positive total, yields an empty result.
func PopularInCategory(records []domain.TransactionRecord, category string, topN int) []Popularity {
	if topN < 1 {
		return []Popularity{}
	}

	totals := make(map[string]int64)
	var categoryTotal int64
	for _, rec := range records {
		if rec.ProductType != category {
			continue
		}
		totals[rec.ProductName] += rec.Quantity
		categoryTotal += rec.Quantity
	}
	if categoryTotal <= 0 {
		return []Popularity{}
	}

	ranked := make([]Popularity, 0, len(totals))
	for name, qty := range totals {
		ranked = append(ranked, Popularity{Product: name, Quantity: qty})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Product < ranked[j].Product
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	total := decimal.NewFromInt(categoryTotal)
	for i := range ranked {
		share := decimal.NewFromInt(ranked[i].Quantity).Mul(hundred).Div(total)
		ranked[i].Percentage = share.RoundBank(2).InexactFloat64()
	}
	return ranked
}
