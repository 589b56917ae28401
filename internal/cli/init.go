// Package cli provides the bootstrap shared by the ledger commands:
// environment loading, logging, and opening the record store.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ledger/internal/cache"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/storage"
)

// LoadEnvFile loads the .env file for local use.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration from the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg and installs it as
// the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	level, err := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: applog.ComponentCLI,
		Output:    os.Stderr,
	})
	if err != nil {
		logger.Warn("Falling back to info log level", applog.FieldError, err)
	}
	applog.SetDefault(logger.WithComponent(applog.ComponentStorage))
	return logger
}

// OpenLedger opens the store at cfg.DBPath and wires the query cache and
// metrics. The caller must call Shutdown on the returned ledger.
func OpenLedger(cfg *config.Config, logger *applog.Logger) (*ledger.Ledger, error) {
	repo, err := storage.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.DBPath, err)
	}

	opts := ledger.Options{
		Categories:  core.NewCategories(cfg.Categories),
		Logger:      logger.WithComponent(applog.ComponentLedger).Logger,
		MetricsFile: cfg.MetricsFile,
	}
	if cfg.CacheSize > 0 {
		opts.Cache = cache.NewLRU[core.Result](cfg.CacheSize, cfg.CacheTTL)
	}
	if cfg.MetricsFile != "" {
		opts.Metrics = metrics.New()
	}

	logger.Debug("Ledger opened",
		applog.FieldPath, cfg.DBPath,
		"categories", len(cfg.Categories),
		"cache_size", cfg.CacheSize)
	return ledger.New(repo, opts), nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func ShutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
