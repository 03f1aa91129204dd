package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/susatyo441/shop-vision/internal/api"
	"github.com/susatyo441/shop-vision/internal/cache"
	"github.com/susatyo441/shop-vision/internal/camera"
	"github.com/susatyo441/shop-vision/internal/cart"
	"github.com/susatyo441/shop-vision/internal/catalog"
	"github.com/susatyo441/shop-vision/internal/channel"
	"github.com/susatyo441/shop-vision/internal/config"
	"github.com/susatyo441/shop-vision/internal/domain"
	"github.com/susatyo441/shop-vision/internal/draft"
	"github.com/susatyo441/shop-vision/internal/publisher"
	"github.com/susatyo441/shop-vision/internal/sampler"
	"github.com/susatyo441/shop-vision/internal/session"
	"github.com/susatyo441/shop-vision/internal/transaction"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := config.Load()

	// Product cache backed by Redis.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	productCache := cache.NewRedisCache(redisClient)

	// Catalog resolution: cache-first, stampede-protected.
	catalogClient := catalog.NewClient(cfg.CatalogBaseURL, cfg.RequestTimeout)
	resolver := catalog.NewResolver(productCache, catalogClient)

	// Draft cart persistence. Losing Mongo degrades to an in-memory cart,
	// it never blocks capture.
	var drafts session.DraftStore
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := draft.Connect(mongoCtx, cfg.MongoURI, cfg.MongoDatabase)
	mongoCancel()
	if err != nil {
		slog.Warn("draft store unavailable, carts will not survive restarts", "error", err)
	} else {
		drafts = draft.NewStore(draft.NewMongoRepository(db))
	}

	sales := publisher.NewSalesPublisher(cfg.SalesTopic, cfg.KafkaBrokers...)
	defer sales.Close()

	cameraMgr := camera.NewManager(camera.NewFileProvider(cfg.FrameDir))
	accumulated := cart.New()

	dial := func(ctx context.Context, handler func(ctx context.Context, batch domain.DetectionBatch)) (session.Conn, error) {
		return channel.Dial(ctx, cfg.DetectionURL, handler)
	}

	controller := session.NewController(session.Options{
		Camera:             cameraMgr,
		Dial:               dial,
		Resolver:           resolver,
		Sampler:            sampler.New(cfg.SampleInterval, cfg.FrameSize, cfg.JPEGQuality),
		Cart:               accumulated,
		Notifier:           session.LogNotifier{},
		Drafts:             drafts,
		Submit:             transaction.NewClient(cfg.TransactionBaseURL, cfg.RequestTimeout),
		Sales:              sales,
		StoreID:            cfg.StoreID,
		MaxSessionDuration: cfg.MaxSessionDuration,
		LongPressThreshold: cfg.LongPressThreshold,
		DrainTimeout:       cfg.DrainTimeout,
	})
	defer controller.Dispose()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := controller.Start(startCtx); err != nil {
		slog.Warn("capture page started degraded", "error", err)
	}
	startCancel()

	handler := api.NewHandler(controller, accumulated, cameraMgr, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(api.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api/v1", handler.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "capture-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("capture service starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}
