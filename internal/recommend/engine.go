package recommend

import (
	"sync"
	"time"

	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	"github.com/dvloznov/warmindo-recommender/internal/domain"
)

// Default result sizes.
const (
	DefaultSimilarTopN  = 6
	DefaultCategoryTopN = 5
)

// RebuildStats describes one similarity rebuild.
type RebuildStats struct {
	Records   int           `json:"records"`
	Customers int           `json:"customers"`
	Products  int           `json:"products"`
	Duration  time.Duration `json:"duration"`
	BuiltAt   time.Time     `json:"built_at"`
}

// Engine holds the derived similarity table. Derived state is replaced
// wholesale by Rebuild; readers never see a half-built table.
type Engine struct {
	mu             sync.RWMutex
	table          *SimilarityTable
	productsByType map[string]map[string]struct{}
	stats          RebuildStats
}

// NewEngine returns an engine with an empty table.
func NewEngine() *Engine {
	return &Engine{
		table:          ComputeSimilarity(BuildInteractionMatrix(nil)),
		productsByType: map[string]map[string]struct{}{},
	}
}

// Rebuild recomputes the interaction matrix and similarity table from records.
func (e *Engine) Rebuild(records []domain.TransactionRecord) RebuildStats {
	start := time.Now()

	matrix := BuildInteractionMatrix(records)
	table := ComputeSimilarity(matrix)

	byType := make(map[string]map[string]struct{})
	for _, rec := range records {
		set, ok := byType[rec.ProductType]
		if !ok {
			set = make(map[string]struct{})
			byType[rec.ProductType] = set
		}
		set[rec.ProductName] = struct{}{}
	}

	stats := RebuildStats{
		Records:   len(records),
		Customers: len(matrix.Customers),
		Products:  len(matrix.Products),
		Duration:  time.Since(start),
		BuiltAt:   time.Now(),
	}

	e.mu.Lock()
	e.table = table
	e.productsByType = byType
	e.stats = stats
	e.mu.Unlock()

	return stats
}

// Stats returns the stats of the last rebuild.
func (e *Engine) Stats() RebuildStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Table returns the current similarity table. Tables are immutable once built.
func (e *Engine) Table() *SimilarityTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table
}

// Products returns the product names of the current table in column order.
func (e *Engine) Products() []string {
	return e.Table().Products()
}

// Similarity returns the score between a and b; ok is false when either is unknown.
func (e *Engine) Similarity(a, b string) (score float64, ok bool) {
	return e.Table().Score(a, b)
}

// Similar returns up to topN product names most similar to product. When
// category is non-empty, only products sold under that product type are
// candidates. Unknown products yield an empty result.
func (e *Engine) Similar(product, category string, topN int) []string {
	ranked := e.SimilarScored(product, category, topN)
	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Product
	}
	return names
}

// SimilarScored is Similar with the similarity scores attached.
func (e *Engine) SimilarScored(product, category string, topN int) []Ranked {
	e.mu.RLock()
	table := e.table
	var keep func(string) bool
	if category != "" {
		members := e.productsByType[category]
		keep = func(p string) bool {
			_, ok := members[p]
			return ok
		}
	}
	e.mu.RUnlock()

	return table.MostSimilar(product, keep, topN)
}

// RecordSource supplies the current dataset snapshot.
type RecordSource interface {
	Records() []domain.TransactionRecord
}

// Service exposes both recommendation strategies. Similarity answers come
// from the engine's last rebuild; category popularity is computed from the
// current snapshot on every call.
type Service struct {
	engine *Engine
	source RecordSource
}

// NewService creates a recommendation service.
func NewService(engine *Engine, source RecordSource) *Service {
	return &Service{engine: engine, source: source}
}

// RecommendSimilar answers "customers who bought product also bought".
// The product name is canonicalised before lookup.
func (s *Service) RecommendSimilar(product, category string, topN int) []string {
	return s.engine.Similar(dataset.CanonicalProductName(product), category, topN)
}

// RecommendByCategory answers "top sellers in category".
func (s *Service) RecommendByCategory(category string, topN int) []Popularity {
	return PopularInCategory(s.source.Records(), category, topN)
}
