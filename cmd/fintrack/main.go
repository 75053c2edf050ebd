package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)
	if err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(result, 5*time.Second); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
		}
	}()

	var static fs.FS = web.Static()
	if cfg.StaticDir != "" {
		static = os.DirFS(cfg.StaticDir)
	}

	srv := apphttp.NewServer(result.Service, apphttp.Options{
		Addr:               cfg.Addr(),
		StrictStatus:       cfg.StrictStatus,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Static:             static,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"addr", cfg.Addr(),
			applog.FieldBackend, cfg.DataBackend,
			"strict_status", cfg.StrictStatus,
			"events_enabled", cfg.EventsEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
