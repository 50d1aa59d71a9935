package inmemory

import (
	"context"
	"sync"

	"github.com/dvloznov/warmindo-recommender/internal/ratings"
)

// Store is an in-memory implementation of ratings.Store.
// It is safe for concurrent use. Data is lost on service restart - for
// durability, use the sqlite store.
type Store struct {
	mu         sync.RWMutex
	aggregates map[string]ratings.Aggregate
}

// NewStore creates an empty in-memory rating store.
func NewStore() *Store {
	return &Store{
		aggregates: make(map[string]ratings.Aggregate),
	}
}

// Submit implements the ratings.Store interface.
func (s *Store) Submit(ctx context.Context, product string, rating int64) (float64, error) {
	product, err := ratings.ValidateProduct(product)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agg := s.aggregates[product]
	agg.Total += rating
	agg.Count++
	s.aggregates[product] = agg

	return agg.Average(), nil
}

// Get implements the ratings.Store interface.
func (s *Store) Get(ctx context.Context, product string) (ratings.Aggregate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.aggregates[product]
	return agg, ok, nil
}

// All implements the ratings.Store interface. The map is a copy.
func (s *Store) All(ctx context.Context) (map[string]ratings.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ratings.Aggregate, len(s.aggregates))
	for k, v := range s.aggregates {
		out[k] = v
	}
	return out, nil
}

// Close implements the ratings.Store interface.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements ratings.Store interface.
var _ ratings.Store = (*Store)(nil)
