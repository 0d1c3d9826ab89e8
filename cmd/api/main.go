package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/review_widget/internal/delivery/http"
	"github.com/Pesokrava/review_widget/internal/delivery/http/handler"
	"github.com/Pesokrava/review_widget/internal/pkg/cache"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/pkg/retry"
	"github.com/Pesokrava/review_widget/internal/repository"
	cacheRepo "github.com/Pesokrava/review_widget/internal/repository/cache"
	"github.com/Pesokrava/review_widget/internal/usecase/review"

	_ "github.com/Pesokrava/review_widget/docs"
)

// @title Review Widget API
// @version 1.0
// @description Review storage, partition queries and rating stats for the embeddable review widget.

// @contact.name API Support
// @contact.url http://github.com/Pesokrava/review_widget

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @tag.name Reviews
// @tag.description Review submission, listing and stats

// @tag.name Embed
// @tag.description Read routes for the embeddable widget

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	logger.SetGlobalLogger(appLogger)
	appLogger.With("store", cfg.Store.Driver).Info("Starting Review Widget API...")

	store, err := repository.Open(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open review store", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			appLogger.Error("Failed to close review store", err)
		}
	}()

	if err := store.EnsureIndexes(context.Background(), retry.Startup); err != nil {
		appLogger.Fatal("Failed to ensure review store indexes", err)
	}

	var reviewCache review.ReviewCache
	if cfg.Cache.Enabled {
		appLogger.Info("Connecting to Redis...")
		redisClient, err := cache.WaitForRedis(context.Background(), cfg.Redis, appLogger, retry.Startup)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", err)
		}
		defer redisClient.Close()

		reviewCache = cacheRepo.NewRedisCache(
			redisClient,
			cfg.Cache.ReviewsListTTL,
			cfg.Cache.ReviewStatsTTL,
		)
	}

	var publisher review.EventPublisher
	if cfg.NATS.Enabled {
		appLogger.Info("Connecting to NATS...")
		natsPublisher, err := events.NewPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create NATS publisher", err)
		}
		defer natsPublisher.Close()

		if err := events.NewStreamConfig(natsPublisher.JetStream(), appLogger).EnsureStream(); err != nil {
			appLogger.Fatal("Failed to ensure review events stream", err)
		}
		publisher = natsPublisher
	}

	reviewService := review.NewService(store.Reviews, reviewCache, publisher, appLogger)
	reviewHandler := handler.NewReviewHandler(reviewService, cfg.Embed.DefaultWebsite, appLogger)

	router := httpDelivery.NewRouter(reviewHandler, reviewService, cfg, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
		return
	}

	appLogger.Info("Server stopped gracefully")
}
