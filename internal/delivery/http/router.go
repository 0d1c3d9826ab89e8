package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/delivery/http/handler"
	"github.com/Pesokrava/review_widget/internal/delivery/http/middleware"
	"github.com/Pesokrava/review_widget/internal/delivery/http/response"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

// Pinger reports whether the review store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds HTTP handlers and router configuration
type Router struct {
	reviewHandler *handler.ReviewHandler
	store         Pinger
	logger        *logger.Logger
	cfg           *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	reviewHandler *handler.ReviewHandler,
	store Pinger,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		reviewHandler: reviewHandler,
		store:         store,
		logger:        log,
		cfg:           cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{middleware.DegradedHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", rt.healthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/reviews", func(r chi.Router) {
		r.Post("/", rt.reviewHandler.Submit)
		r.Get("/", rt.reviewHandler.List)
		r.Get("/stats", rt.reviewHandler.Stats)
	})

	r.Route("/embed/{productId}", func(r chi.Router) {
		r.Get("/reviews", rt.reviewHandler.EmbedList)
		r.Get("/stats", rt.reviewHandler.EmbedStats)
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Error("Health check failed", err)
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
		})
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
