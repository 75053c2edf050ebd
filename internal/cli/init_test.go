package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

func TestBootstrapReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_FILE=from-env-file.json\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DATA_FILE", "")
	// godotenv does not override variables already present in the
	// environment, so make sure it is unset rather than empty.
	os.Unsetenv("DATA_FILE")

	cfg, logger, err := Bootstrap(applog.ComponentApp, (*config.Config).Validate)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if cfg.DataFile != "from-env-file.json" {
		t.Fatalf("DataFile = %q", cfg.DataFile)
	}
	if logger.Component() != applog.ComponentApp {
		t.Fatalf("component = %q", logger.Component())
	}
}

func TestBootstrapValidationError(t *testing.T) {
	t.Setenv("PORT", "nope")
	_, _, err := Bootstrap(applog.ComponentWorker, func(c *config.Config) error {
		return errors.Join(c.Validate())
	})
	if err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Fatalf("expected port validation error, got %v", err)
	}
}

func TestSetupLoggerUsesConfig(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, applog.ComponentHTTP)
	if logger.Component() != applog.ComponentHTTP {
		t.Fatalf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug level should be enabled")
	}
}
