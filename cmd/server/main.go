package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/substrate/internal/api"
	"github.com/Harshitk-cp/substrate/internal/booklaw"
	"github.com/Harshitk-cp/substrate/internal/config"
	"github.com/Harshitk-cp/substrate/internal/domain"
	"github.com/Harshitk-cp/substrate/internal/embedding"
	"github.com/Harshitk-cp/substrate/internal/service"
	"github.com/Harshitk-cp/substrate/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	registry := booklaw.NewRegistry()
	rules, err := loadRules(registry)
	if err != nil {
		logger.Fatal("failed to load booklaw rules", zap.Error(err))
	}
	law, err := booklaw.New(logger, rules...)
	if err != nil {
		logger.Fatal("failed to build booklaw", zap.Error(err))
	}
	logger.Info("booklaw loaded", zap.Strings("rules", law.Rules()))

	var embeddingClient domain.EmbeddingClient
	embeddingProvider := config.EmbeddingProvider()
	embeddingClient, err = embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey(), config.EmbeddingDimensions())
	if err != nil {
		logger.Warn("Embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else {
		logger.Info("Embedding client initialized", zap.String("provider", embeddingProvider))
	}

	svc := service.NewSubstrateService(law, registry, embeddingClient, logger, service.Options{
		DriftRate:       config.DriftRate(),
		DetectThreshold: config.DetectThreshold(),
		MinDensity:      config.MinContradictionDensity(),
	})

	var pool *pgxpool.Pool
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("failed to apply schema", zap.Error(err))
		}
		logger.Info("connected to database")

		svc.SetStores(service.Stores{
			Geoids:         store.NewGeoidStore(pool),
			Scars:          store.NewScarStore(pool),
			Contradictions: store.NewContradictionStore(pool),
			Ledger:         store.NewLedgerStore(pool),
		})
		if err := svc.Restore(ctx); err != nil {
			logger.Fatal("failed to restore substrate", zap.Error(err))
		}
		snap := svc.Snapshot()
		logger.Info("substrate restored",
			zap.Int("geoids", snap.Substrate.TotalGeoids),
			zap.Int("scars", snap.Vault.TotalScars),
			zap.Int("ledger_entries", snap.LedgerEntries))
	} else {
		logger.Warn("DATABASE_URL not set; substrate state is in-memory only")
	}

	app := api.NewApp(svc, pool, logger)

	var cycle *service.CycleService
	if interval := config.CycleInterval(); interval > 0 {
		cycle = service.NewCycleService(svc, logger)
		cycle.SetInterval(interval)
		cycle.Start()
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	if cycle != nil {
		cycle.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	if res, err := svc.Persist(shutdownCtx); err != nil {
		logger.Error("final persist failed", zap.Error(err))
	} else if res != nil {
		logger.Info("final persist complete",
			zap.Int("geoids", res.Geoids),
			zap.Int("ledger_entries", res.LedgerEntries))
	}

	logger.Info("server stopped")
}

func loadRules(reg *booklaw.Registry) ([]booklaw.Rule, error) {
	if path := config.BooklawPath(); path != "" {
		return booklaw.LoadFile(path, reg)
	}
	return booklaw.DefaultRules(reg)
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
