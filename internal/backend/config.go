package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %v)", appConfig.DataBackend, GetBackendTypes())
	}

	cfg := Config{
		Type:            backendType,
		DataFile:        appConfig.DataFile,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		SummaryCacheTTL: appConfig.SummaryCacheTTL,
	}
	if appConfig.EventsEnabled() {
		cfg.AMQPURL = appConfig.AMQPURL
		cfg.AMQPExchange = appConfig.AMQPExchange
		cfg.AMQPQueue = appConfig.AMQPQueue
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case JSONBackend:
		if c.DataFile == "" {
			return fmt.Errorf("data file path is required for json backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	default:
		return fmt.Errorf("invalid backend type: %s (valid: %v)", c.Type, GetBackendTypes())
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{JSONBackend, SQLiteBackend}
}
