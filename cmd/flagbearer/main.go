// Package main initializes and runs the Flagbearer API service.
//
// It acts as the composition root: configuration, logging, Postgres,
// the result cache, the evaluation core, and the HTTP servers are wired
// here and nowhere else.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/arturmelo/flagbearer/internal/api"
	"github.com/arturmelo/flagbearer/internal/cache"
	"github.com/arturmelo/flagbearer/internal/config"
	"github.com/arturmelo/flagbearer/internal/database"
	"github.com/arturmelo/flagbearer/internal/flageval"
	"github.com/arturmelo/flagbearer/internal/health"
	"github.com/arturmelo/flagbearer/internal/logger"
	"github.com/arturmelo/flagbearer/internal/override"
	"github.com/arturmelo/flagbearer/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	// -------------------------------------------------------------------------
	// 1. Configuration & Logging
	// -------------------------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx := logger.WithContext(context.Background(), log)

	// -------------------------------------------------------------------------
	// 2. Infrastructure
	// -------------------------------------------------------------------------
	pool, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	var resultCache cache.Service
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		resultCache, err = cache.NewMemoryCache(cfg.Cache.MemoryCapacity, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to create memory cache: %w", err)
		}
	default:
		redisClient, redisErr := cache.NewRedisClient(ctx, &cfg.Redis)
		if redisErr != nil {
			return fmt.Errorf("failed to connect to redis: %w", redisErr)
		}
		resultCache, err = cache.NewRedisCache(redisClient, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to create redis cache: %w", err)
		}
	}
	defer resultCache.Close()

	// -------------------------------------------------------------------------
	// 3. Wiring (Dependency Injection)
	// -------------------------------------------------------------------------
	repo := store.NewPostgresStore(pool)
	evaluator := flageval.NewEvaluator(repo, resultCache, log)
	manager := override.NewManager(repo, resultCache, log)
	apiServer := api.NewAPI(repo, evaluator, manager, log)

	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           apiServer.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	var healthSvc *health.Service
	if cfg.Health.Enabled {
		healthSvc = health.NewService(log, cfg.Health,
			health.NewPostgresChecker(pool),
			health.NewCacheChecker(resultCache),
		)
		healthSvc.Start()
	}

	// -------------------------------------------------------------------------
	// 4. Serve
	// -------------------------------------------------------------------------
	errChan := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", slog.String("addr", server.Addr))
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", serveErr)
		}
	}()

	// -------------------------------------------------------------------------
	// 5. Graceful Shutdown
	// -------------------------------------------------------------------------
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	if healthSvc != nil {
		if err := healthSvc.Stop(shutdownCtx); err != nil {
			log.Warn("failed to stop health server", slog.Any("error", err))
		}
	}

	log.Info("service exited successfully")
	return nil
}
