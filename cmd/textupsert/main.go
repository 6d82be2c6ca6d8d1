package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/textupsert/internal/config"
	dbRedis "github.com/kailas-cloud/textupsert/internal/db/redis"
	"github.com/kailas-cloud/textupsert/internal/lifecycle"
	logpkg "github.com/kailas-cloud/textupsert/internal/logger"
	"github.com/kailas-cloud/textupsert/internal/metrics"
	chiTransport "github.com/kailas-cloud/textupsert/internal/transport/chi"
	collectionuc "github.com/kailas-cloud/textupsert/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/textupsert/internal/usecase/document"
	healthuc "github.com/kailas-cloud/textupsert/internal/usecase/health"
	"github.com/kailas-cloud/textupsert/internal/version"
)

const initTimeout = 60 * time.Second

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config: "+err.Error())
		os.Exit(1)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger: "+err.Error())
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting textupsert API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_store", cfg.VectorStore.Driver),
		zap.String("collection", cfg.VectorStore.Collection),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("embedding_cache", cfg.Cache.Enabled),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterStoreMetrics()

	ctx := context.Background()

	// Optional embedding cache
	var cache lifecycle.CacheStore
	var cacheStore *dbRedis.Store
	if cfg.Cache.Enabled {
		cacheStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		if err := cacheStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			cacheStore.Close()
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		cache = cacheStore
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Build clients and resolve the collection. Failure is fatal: never serve
	// against missing dependencies.
	manager := lifecycle.NewManager(
		lifecycle.NewConfigFactory(&cfg, cache, logger),
		cfg.VectorStore.Collection,
		logger.Named("lifecycle"),
	)
	initCtx, cancelInit := context.WithTimeout(ctx, initTimeout)
	err = manager.Initialize(initCtx)
	cancelInit()
	if err != nil {
		if cacheStore != nil {
			cacheStore.Close()
		}
		logger.Fatal("Service initialization failed", zap.Error(err))
	}

	docSvc := documentuc.New(manager, cfg.VectorStore.Timeout())
	collSvc := collectionuc.New(manager, cfg.VectorStore.Timeout())
	healthSvc := healthuc.New(manager, healthuc.Options{
		Probe:        cfg.Health.ProbeUpstreams,
		ProbeTimeout: time.Duration(cfg.Health.ProbeTimeoutSec) * time.Second,
	})

	server := chiTransport.NewServer(docSvc, collSvc, healthSvc, cfg.HTTP.MaxBodyBytes)
	router := chiTransport.NewRouter(server, chiTransport.RouterOptions{
		Tokens:           cfg.Auth.Tokens(),
		AllowedOrigins:   cfg.HTTP.CORS.AllowedOrigins,
		AllowCredentials: cfg.HTTP.CORS.AllowCredentials,
		CORSMaxAgeSec:    cfg.HTTP.CORS.MaxAgeSec,
		RateLimitRPS:     cfg.HTTP.RateLimit.RPS,
		RateLimitBurst:   cfg.HTTP.RateLimit.Burst,
		Logger:           logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error closing vector store", zap.Error(err))
	}
	if cacheStore != nil {
		cacheStore.Close()
	}

	logger.Info("Server stopped gracefully")
}
