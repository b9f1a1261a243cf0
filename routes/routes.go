package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/model-router/app"
	"github.com/upb/model-router/handlers"
	"github.com/upb/model-router/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.DB.DB, deps.Logger)
	recHandler := handlers.NewRecommendationHandler(deps.Recommender, deps.Logger)
	debugHandler := handlers.NewDebugHandler(deps.Recommender, deps.Scheduler, deps.Store, deps.FetcherList(), deps.Logger)

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", recHandler.HandleRecommend)
		r.Post("/telemetry", recHandler.HandleTelemetry)
		r.Get("/models/{name}/performance", recHandler.HandleModelPerformance)

		r.Get("/debug/status", debugHandler.HandleStatus)
		r.Post("/admin/refresh", debugHandler.HandleRefresh)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
