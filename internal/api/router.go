// Package api assembles the HTTP surface of the recommender.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/warmindo-recommender/internal/api/handlers"
	"github.com/dvloznov/warmindo-recommender/internal/api/middleware"
	"github.com/dvloznov/warmindo-recommender/internal/jobs"
	"github.com/dvloznov/warmindo-recommender/internal/metrics"
	"github.com/dvloznov/warmindo-recommender/internal/ratings"
	"github.com/dvloznov/warmindo-recommender/internal/validation"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Catalog     handlers.Catalog
	Recommender handlers.Recommender
	Ratings     ratings.Store
	Favorites   handlers.FavoriteWriter
	Engine      handlers.StatsSource
	JobStore    jobs.JobStore
	Publisher   jobs.Publisher

	SimilarTopN int
	PopularTopN int

	Logger zerolog.Logger
}

// NewRouter builds the chi router with the middleware chain applied.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	v := validation.New()

	pages := handlers.NewPagesHandler(deps.Catalog, deps.Recommender, deps.Ratings, deps.Favorites, deps.PopularTopN, log)
	ratingsHandler := handlers.NewRatingsHandler(deps.Ratings, v, log)
	recommendations := handlers.NewRecommendationsHandler(deps.Recommender, v, deps.SimilarTopN, deps.PopularTopN, log)
	categories := handlers.NewCategoriesHandler(deps.Catalog, log)
	jobsHandler := handlers.NewJobsHandler(deps.JobStore, deps.Publisher, log)
	health := handlers.NewHealthHandler(deps.Catalog, deps.Engine)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	// Pages
	r.Get("/", pages.Index)
	r.Post("/", pages.Index)
	r.Post("/favorit", pages.Favorit)
	r.Get("/about", pages.About)
	r.Post("/rate", ratingsHandler.Rate)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/recommendations/similar", recommendations.Similar)
		r.Get("/recommendations/popular", recommendations.Popular)
		r.Get("/categories", categories.ListCategories)
		r.Get("/ratings", ratingsHandler.ListRatings)
		r.Get("/jobs", jobsHandler.ListJobs)
		r.Post("/jobs/refresh", jobsHandler.EnqueueRefresh)
		r.Get("/jobs/{id}", jobsHandler.GetJob)
	})

	r.Get("/health", health.Health)
	r.Handle("/metrics", metrics.Handler())

	return r
}
