// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recommendation strategies.
const (
	StrategySimilar  = "similar"
	StrategyCategory = "category"
)

var (
	// Recommendations
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmindo_recommendations_total",
			Help: "Recommendation requests by strategy and whether any items were returned",
		},
		[]string{"strategy", "outcome"}, // outcome: "hit", "empty"
	)

	// Ratings
	RatingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmindo_ratings_submitted_total",
			Help: "Rating submissions by result",
		},
		[]string{"result"}, // "accepted", "rejected"
	)

	// Favorites
	FavoritesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmindo_favorites_appended_total",
			Help: "Favorite submissions by result",
		},
		[]string{"result"}, // "appended", "invalid", "unknown_product", "error"
	)

	// Similarity table
	SimilarityRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warmindo_similarity_rebuild_duration_seconds",
			Help:    "Duration of similarity table rebuilds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SimilarityProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warmindo_similarity_products",
			Help: "Number of products in the current similarity table",
		},
	)

	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warmindo_dataset_records",
			Help: "Number of records in the in-memory dataset snapshot",
		},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warmindo_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warmindo_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordRecommendation counts one recommendation answer of n items.
func RecordRecommendation(strategy string, n int) {
	outcome := "hit"
	if n == 0 {
		outcome = "empty"
	}
	RecommendationsTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordRating counts one rating submission.
func RecordRating(accepted bool) {
	if accepted {
		RatingsSubmitted.WithLabelValues("accepted").Inc()
		return
	}
	RatingsSubmitted.WithLabelValues("rejected").Inc()
}

// RecordFavorite counts one favorite submission with the given result label.
func RecordFavorite(result string) {
	FavoritesAppended.WithLabelValues(result).Inc()
}

// RecordRebuild records a similarity rebuild.
func RecordRebuild(duration time.Duration, products, records int) {
	SimilarityRebuildDuration.Observe(duration.Seconds())
	SimilarityProducts.Set(float64(products))
	DatasetRecords.Set(float64(records))
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
