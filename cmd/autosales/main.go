package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"autosales/internal/cli"
	apphttp "autosales/internal/http"
	applog "autosales/internal/log"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger until the configured level is known
	boot := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(boot.Logger)

	logger := cli.SetupLogger(cfg.LogLevel)
	ds := cli.LoadDataset(logger.Logger, cfg)

	srv := apphttp.NewServer(cfg.Addr(), ds, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		ChartCacheSize:     cfg.ChartCacheSize,
		ChartCacheTTL:      cfg.ChartCacheTTL,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.LogError(ctx, "Server shutdown error", err, applog.OpShutdown, applog.ErrorTypeInternal)
		}
	})

	go func() {
		fields := applog.NewFields().
			WithDataset(ds.Source(), ds.Len()).
			WithOperation(applog.OpStartup)
		fields["addr"] = cfg.Addr()
		fields["debug"] = cfg.Debug
		logger.Info("Starting autosales dashboard", fields.ToSlice()...)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", applog.FieldError, err, "addr", cfg.Addr())
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
