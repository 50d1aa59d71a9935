package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/api/middleware"
	"github.com/dvloznov/warmindo-recommender/internal/jobs"
	"github.com/dvloznov/warmindo-recommender/internal/recommend"
)

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	catalog Catalog
	log     zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(catalog Catalog, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		catalog: catalog,
		log:     log,
	}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.Categories()
	if categories == nil {
		categories = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// JobsHandler handles similarity refresh jobs.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job not found")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Reason: query.Get("reason"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// EnqueueRefresh handles POST /api/jobs/refresh
func (h *JobsHandler) EnqueueRefresh(w http.ResponseWriter, r *http.Request) {
	job := &jobs.RefreshSimilarityJob{Reason: jobs.ReasonManual}

	if err := h.publisher.PublishRefresh(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue refresh job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue refresh job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Refresh job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// StatsSource reports the last similarity rebuild.
type StatsSource interface {
	Stats() recommend.RebuildStats
}

// HealthHandler reports liveness and dataset state.
type HealthHandler struct {
	catalog Catalog
	engine  StatsSource
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(catalog Catalog, engine StatsSource) *HealthHandler {
	return &HealthHandler{catalog: catalog, engine: engine}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"time":               time.Now().Format(time.RFC3339),
		"records":            h.catalog.Len(),
		"similarity_records": stats.Records,
		"products":           stats.Products,
		"built_at":           stats.BuiltAt.Format(time.RFC3339),
	})
}
