package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/delivery/events"
	"github.com/Pesokrava/review_widget/internal/pkg/cache"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/pkg/retry"
	"github.com/Pesokrava/review_widget/internal/repository"
	cacheRepo "github.com/Pesokrava/review_widget/internal/repository/cache"
	"github.com/Pesokrava/review_widget/internal/usecase/review"
	"github.com/Pesokrava/review_widget/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting stats worker...")

	if !cfg.Cache.Enabled {
		appLogger.Warn("CACHE_ENABLED=false, nothing to warm; exiting")
		return
	}

	store, err := repository.Open(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open review store", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			appLogger.Error("Failed to close review store", err)
		}
	}()

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(context.Background(), cfg.Redis, appLogger, retry.Startup)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()

	reviewCache := cacheRepo.NewRedisCache(redisClient, cfg.Cache.ReviewsListTTL, cfg.Cache.ReviewStatsTTL)
	reviewService := review.NewService(store.Reviews, reviewCache, nil, appLogger)
	statsWarmer := worker.NewStatsWarmer(reviewService, appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	consumer, err := events.NewConsumer(cfg, "stats-worker", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer consumer.Close()

	js, err := consumer.Conn().JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	streamConfig := events.NewStreamConfig(js, appLogger)
	if err := streamConfig.EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}
	if err := streamConfig.EnsureConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	sub, err := js.PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Subscribed to JetStream consumer")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		events.RunPullLoop(ctx, sub, statsWarmer.HandleEvent, appLogger)
	}()

	<-ctx.Done()
	appLogger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := statsWarmer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	select {
	case <-loopDone:
	case <-shutdownCtx.Done():
	}

	appLogger.Info("Stats worker stopped")
}
