package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/api/middleware"
	"github.com/dvloznov/warmindo-recommender/internal/metrics"
	"github.com/dvloznov/warmindo-recommender/internal/ratings"
	"github.com/dvloznov/warmindo-recommender/internal/validation"
)

// RatingsHandler handles star ratings.
type RatingsHandler struct {
	store     ratings.Store
	validator *validation.Validator
	log       zerolog.Logger
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(store ratings.Store, validator *validation.Validator, log zerolog.Logger) *RatingsHandler {
	return &RatingsHandler{
		store:     store,
		validator: validator,
		log:       log,
	}
}

type rateRequest struct {
	Product string          `json:"product" validate:"required"`
	Rating  json.RawMessage `json:"rating"`
}

type rateResponse struct {
	Success bool     `json:"success"`
	Average *float64 `json:"average,omitempty"`
}

// Rate handles POST /rate. Any malformed or incomplete request answers
// {"success": false} with status 200 and records nothing.
func (h *RatingsHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.reject(w, "invalid body", err)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		h.reject(w, "missing product", err)
		return
	}
	rating, err := ratings.ParseRating(req.Rating)
	if err != nil {
		h.reject(w, "invalid rating", err)
		return
	}

	avg, err := h.store.Submit(r.Context(), req.Product, rating)
	if err != nil {
		h.reject(w, "submit failed", err)
		return
	}

	metrics.RecordRating(true)
	middleware.WriteJSON(w, http.StatusOK, rateResponse{Success: true, Average: &avg})
}

func (h *RatingsHandler) reject(w http.ResponseWriter, reason string, err error) {
	metrics.RecordRating(false)
	h.log.Debug().Err(err).Str("reason", reason).Msg("Rating rejected")
	middleware.WriteJSON(w, http.StatusOK, rateResponse{Success: false})
}

type ratingSummary struct {
	Product string  `json:"product"`
	Average float64 `json:"average"`
	Total   int64   `json:"total"`
	Count   int64   `json:"count"`
}

// ListRatings handles GET /api/ratings
func (h *RatingsHandler) ListRatings(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list ratings")
		middleware.WriteAppError(w, err)
		return
	}

	list := make([]ratingSummary, 0, len(all))
	for product, agg := range all {
		list = append(list, ratingSummary{
			Product: product,
			Average: agg.Average(),
			Total:   agg.Total,
			Count:   agg.Count,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Product < list[j].Product })

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ratings": list,
		"count":   len(list),
	})
}
