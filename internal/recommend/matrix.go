package recommend

import (
	"sort"

	"github.com/dvloznov/warmindo-recommender/internal/domain"
)

// InteractionMatrix is a dense customer × product table of summed purchase
// quantities. Rows are customers in ascending id order, columns are product
// names in ascending order; absent pairs are zero.
type InteractionMatrix struct {
	Customers []int64
	Products  []string
	// Quantities[i][j] is the total quantity customer i bought of product j.
	Quantities [][]float64

	productIndex map[string]int
}

// BuildInteractionMatrix groups records by (customer, product) and sums quantity.
func BuildInteractionMatrix(records []domain.TransactionRecord) *InteractionMatrix {
	customerSet := make(map[int64]struct{})
	productSet := make(map[string]struct{})
	for _, rec := range records {
		customerSet[rec.CustomerID] = struct{}{}
		productSet[rec.ProductName] = struct{}{}
	}

	customers := make([]int64, 0, len(customerSet))
	for c := range customerSet {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i] < customers[j] })

	products := make([]string, 0, len(productSet))
	for p := range productSet {
		products = append(products, p)
	}
	sort.Strings(products)

	customerIndex := make(map[int64]int, len(customers))
	for i, c := range customers {
		customerIndex[c] = i
	}
	productIndex := make(map[string]int, len(products))
	for j, p := range products {
		productIndex[p] = j
	}

	quantities := make([][]float64, len(customers))
	for i := range quantities {
		quantities[i] = make([]float64, len(products))
	}
	for _, rec := range records {
		quantities[customerIndex[rec.CustomerID]][productIndex[rec.ProductName]] += float64(rec.Quantity)
	}

	return &InteractionMatrix{
		Customers:    customers,
		Products:     products,
		Quantities:   quantities,
		productIndex: productIndex,
	}
}

// Column returns the per-customer quantity vector of product, or nil when the
// product is not a column.
func (m *InteractionMatrix) Column(product string) []float64 {
	j, ok := m.productIndex[product]
	if !ok {
		return nil
	}
	col := make([]float64, len(m.Customers))
	for i := range m.Customers {
		col[i] = m.Quantities[i][j]
	}
	return col
}

// Quantity returns the total quantity customer bought of product; zero when
// either is unknown.
func (m *InteractionMatrix) Quantity(customer int64, product string) float64 {
	j, ok := m.productIndex[product]
	if !ok {
		return 0
	}
	i := sort.Search(len(m.Customers), func(i int) bool { return m.Customers[i] >= customer })
	if i == len(m.Customers) || m.Customers[i] != customer {
		return 0
	}
	return m.Quantities[i][j]
}
