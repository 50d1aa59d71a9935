package recommend

import (
	"math"
	"sort"
)

// SimilarityTable is the fully materialised, symmetric product × product
// cosine similarity table. Products keep the matrix column order, which is
// also the tie-break order for rankings.
type SimilarityTable struct {
	products []string
	index    map[string]int
	scores   [][]float64
}

// ComputeSimilarity builds the cosine similarity of every pair of product
// columns of m.
//
// A product bought by nobody has a zero vector: its similarity is 0 to every
// product, itself included. Every other product has similarity exactly 1 to
// itself.
func ComputeSimilarity(m *InteractionMatrix) *SimilarityTable {
	n := len(m.Products)

	// Transpose once so each product is a contiguous vector.
	vectors := make([][]float64, n)
	norms := make([]float64, n)
	for j := 0; j < n; j++ {
		v := make([]float64, len(m.Customers))
		var sq float64
		for i := range m.Customers {
			q := m.Quantities[i][j]
			v[i] = q
			sq += q * q
		}
		vectors[j] = v
		norms[j] = math.Sqrt(sq)
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, n)
	}

	for a := 0; a < n; a++ {
		if norms[a] == 0 {
			continue
		}
		scores[a][a] = 1
		for b := a + 1; b < n; b++ {
			if norms[b] == 0 {
				continue
			}
			s := clamp(dot(vectors[a], vectors[b]) / (norms[a] * norms[b]))
			scores[a][b] = s
			scores[b][a] = s
		}
	}

	index := make(map[string]int, n)
	for j, p := range m.Products {
		index[p] = j
	}
	products := make([]string, n)
	copy(products, m.Products)

	return &SimilarityTable{products: products, index: index, scores: scores}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// clamp keeps rounding error from pushing a score outside [-1, 1].
func clamp(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}

// Products returns the product names in column order.
func (t *SimilarityTable) Products() []string {
	out := make([]string, len(t.products))
	copy(out, t.products)
	return out
}

// Len returns the number of products.
func (t *SimilarityTable) Len() int {
	return len(t.products)
}

// Has reports whether product is a column of the table.
func (t *SimilarityTable) Has(product string) bool {
	_, ok := t.index[product]
	return ok
}

// Score returns the similarity of a and b.
func (t *SimilarityTable) Score(a, b string) (float64, bool) {
	i, ok := t.index[a]
	if !ok {
		return 0, false
	}
	j, ok := t.index[b]
	if !ok {
		return 0, false
	}
	return t.scores[i][j], true
}

// Ranked is a product with its similarity to an anchor.
type Ranked struct {
	Product string  `json:"product"`
	Score   float64 `json:"score"`
}

// MostSimilar ranks products by descending similarity to anchor, ties broken
// by column order. The anchor is excluded by name. When keep is non-nil only
// products it accepts are ranked. An unknown anchor or topN < 1 yields an
// empty result.
func (t *SimilarityTable) MostSimilar(anchor string, keep func(product string) bool, topN int) []Ranked {
	a, ok := t.index[anchor]
	if !ok || topN < 1 {
		return []Ranked{}
	}

	candidates := make([]Ranked, 0, len(t.products))
	for j, p := range t.products {
		if j == a {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		candidates = append(candidates, Ranked{Product: p, Score: t.scores[a][j]})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}
