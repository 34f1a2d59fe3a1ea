// Package cli provides the startup steps of the dashboard command: env file,
// config, logger, dataset and signal handling.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"autosales/internal/config"
	"autosales/internal/core"
	"autosales/internal/dataset"
	applog "autosales/internal/log"
	"autosales/internal/sheets/google"
)

// SetupLogger initializes structured logging at the configured level.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// BuildSource picks the dataset source named by the configuration.
func BuildSource(ctx context.Context, cfg *config.Config) (dataset.Source, error) {
	switch cfg.DatasetSource {
	case config.SourceFile:
		return &dataset.FileSource{Path: cfg.DatasetFile}, nil
	case config.SourceSheets:
		src, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetRange)
		if err != nil {
			return nil, &core.DataLoadError{Source: "sheets:" + cfg.GoogleSpreadsheetID, Err: err}
		}
		return src, nil
	default:
		if !dataset.IsURL(cfg.DatasetURL) {
			return &dataset.FileSource{Path: cfg.DatasetURL}, nil
		}
		return dataset.NewHTTPSource(cfg.DatasetURL, cfg.FetchTimeout), nil
	}
}

// LoadDataset builds the source and loads the dataset once, bounded by the
// fetch timeout. Returns the dataset or exits the process on failure.
func LoadDataset(logger *slog.Logger, cfg *config.Config) *dataset.Dataset {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	src, err := BuildSource(ctx, cfg)
	if err == nil {
		var ds *dataset.Dataset
		ds, err = dataset.Load(ctx, src)
		if err == nil {
			return ds
		}
	}

	var loadErr *core.DataLoadError
	if errors.As(err, &loadErr) {
		logger.Error("Failed to load dataset", "error", loadErr.Err, applog.FieldSource, loadErr.Source)
	} else {
		logger.Error("Failed to load dataset", "error", err)
	}
	os.Exit(1)
	return nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
