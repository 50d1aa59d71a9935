package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/api/middleware"
	"github.com/dvloznov/warmindo-recommender/internal/dataset"
	apperrors "github.com/dvloznov/warmindo-recommender/internal/errors"
	"github.com/dvloznov/warmindo-recommender/internal/metrics"
	"github.com/dvloznov/warmindo-recommender/internal/recommend"
	"github.com/dvloznov/warmindo-recommender/internal/validation"
)

// RecommendationsHandler serves the recommendation JSON API.
type RecommendationsHandler struct {
	recommender Recommender
	validator   *validation.Validator
	similarTopN int
	popularTopN int
	log         zerolog.Logger
}

// NewRecommendationsHandler creates a new recommendations handler with the
// default result sizes used when top_n is absent.
func NewRecommendationsHandler(recommender Recommender, validator *validation.Validator, similarTopN, popularTopN int, log zerolog.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{
		recommender: recommender,
		validator:   validator,
		similarTopN: similarTopN,
		popularTopN: popularTopN,
		log:         log,
	}
}

type similarQuery struct {
	Product  string `json:"product" validate:"required"`
	Category string `json:"category"`
	TopN     int    `json:"top_n" validate:"gte=1,lte=100"`
}

type popularQuery struct {
	Category string `json:"category" validate:"required"`
	TopN     int    `json:"top_n" validate:"gte=1,lte=100"`
}

// Similar handles GET /api/recommendations/similar
func (h *RecommendationsHandler) Similar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	topN, err := parseTopN(query.Get("top_n"), h.similarTopN)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	q := similarQuery{
		Product:  strings.TrimSpace(query.Get("product")),
		Category: strings.TrimSpace(query.Get("category")),
		TopN:     topN,
	}
	if err := h.validator.Validate(q); err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	names := h.recommender.RecommendSimilar(q.Product, q.Category, q.TopN)
	metrics.RecordRecommendation(metrics.StrategySimilar, len(names))

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"product":         dataset.CanonicalProductName(q.Product),
		"category":        q.Category,
		"recommendations": names,
		"count":           len(names),
	})
}

// Popular handles GET /api/recommendations/popular
func (h *RecommendationsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	topN, err := parseTopN(query.Get("top_n"), h.popularTopN)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	q := popularQuery{
		Category: strings.TrimSpace(query.Get("category")),
		TopN:     topN,
	}
	if err := h.validator.Validate(q); err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	popular := h.recommender.RecommendByCategory(q.Category, q.TopN)
	metrics.RecordRecommendation(metrics.StrategyCategory, len(popular))
	if popular == nil {
		popular = []recommend.Popularity{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category":        q.Category,
		"recommendations": popular,
		"count":           len(popular),
	})
}

func parseTopN(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationWithDetails("validation failed", map[string]string{"top_n": "must be an integer"})
	}
	return n, nil
}
