package recommend

import (
	"testing"

	"github.com/dvloznov/warmindo-recommender/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopularInCategory(t *testing.T) {
	records := []domain.TransactionRecord{
		sale(1, "Es Teh", "Minuman", 3),
		sale(2, "Kopi Susu", "Minuman", 4),
		sale(3, "Es Jeruk", "Minuman", 2),
		sale(4, "Es Teh", "Minuman", 1),
		sale(5, "Nasi Goreng", "Nasi", 10),
	}

	got := PopularInCategory(records, "Minuman", 2)
	require.Len(t, got, 2)
	// Es Teh and Kopi Susu tie on 4; name order decides.
	assert.Equal(t, Popularity{Product: "Es Teh", Quantity: 4, Percentage: 40}, got[0])
	assert.Equal(t, Popularity{Product: "Kopi Susu", Quantity: 4, Percentage: 40}, got[1])

	all := PopularInCategory(records, "Minuman", 10)
	require.Len(t, all, 3)
	assert.Equal(t, "Es Jeruk", all[2].Product)
	assert.Equal(t, 20.0, all[2].Percentage)
}

func TestPopularInCategory_PercentagesCoverCategory(t *testing.T) {
	tests := []struct {
		name       string
		quantities map[string]int64
	}{
		{"exact shares", map[string]int64{"Es Teh": 5, "Kopi Susu": 3, "Es Jeruk": 2}},
		// 66.67 + 16.67 + 16.67 = 100.01 after per-entry rounding.
		{"rounding overshoots", map[string]int64{"Es Teh": 4, "Kopi Susu": 1, "Es Jeruk": 1}},
		// 33.33 * 3 = 99.99.
		{"rounding undershoots", map[string]int64{"Es Teh": 1, "Kopi Susu": 1, "Es Jeruk": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []domain.TransactionRecord
			id := int64(1)
			for name, qty := range tt.quantities {
				records = append(records, sale(id, name, "Minuman", qty))
				id++
			}

			all := PopularInCategory(records, "Minuman", 10)
			require.Len(t, all, len(tt.quantities))

			var sum float64
			for _, p := range all {
				assert.GreaterOrEqual(t, p.Percentage, 0.0)
				assert.LessOrEqual(t, p.Percentage, 100.0)
				sum += p.Percentage
			}
			// Each entry is off by at most half a hundredth.
			assert.InDelta(t, 100.0, sum, 0.01*float64(len(all)))

			var top float64
			for _, p := range PopularInCategory(records, "Minuman", 2) {
				top += p.Percentage
			}
			assert.Less(t, top, 100.0)
		})
	}
}

func TestPopularInCategory_RoundsHalfToEven(t *testing.T) {
	// 1/32 = 3.125% and 31/32 = 96.875%, both exact halves at the third decimal.
	records := []domain.TransactionRecord{
		sale(1, "Kerupuk", "Snack", 1),
		sale(2, "Roti Bakar", "Snack", 31),
	}

	got := PopularInCategory(records, "Snack", 5)
	require.Len(t, got, 2)
	assert.Equal(t, 96.88, got[0].Percentage)
	assert.Equal(t, 3.12, got[1].Percentage)
}

func TestPopularInCategory_Empty(t *testing.T) {
	records := []domain.TransactionRecord{sale(1, "Es Teh", "Minuman", 1)}

	assert.Empty(t, PopularInCategory(records, "NoSuchCategory", 5))
	assert.Empty(t, PopularInCategory(nil, "Minuman", 5))
	assert.Empty(t, PopularInCategory(records, "Minuman", 0))
	// Zero total must not divide by zero.
	assert.Empty(t, PopularInCategory([]domain.TransactionRecord{sale(1, "Es Teh", "Minuman", 0)}, "Minuman", 5))
}
