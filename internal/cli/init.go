// Package cli provides process bootstrap shared by cmd/fintrack and
// cmd/fintrack-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

// LoadEnvFile loads a .env file for local development. A missing file is
// not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		lc.Level = applog.ParseLevel(cfg.LogLevel)
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and configuration, validates it with validate and
// returns the config with a ready logger.
func Bootstrap(component string, validate func(*config.Config) error) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if validate != nil {
		if err := validate(cfg); err != nil {
			return cfg, logger, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, logger, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// returned logger is stored in it.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return applog.NewContext(ctx, logger), stop
}
