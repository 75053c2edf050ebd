package backend

import (
	"context"
	"time"

	"fintrack/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the assembled service and the function that releases
// its storage and messaging resources.
type BackendResult struct {
	Service *services.TransactionService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// JSON specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Optional change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	SummaryCacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	JSONBackend   BackendType = "json"
	SQLiteBackend BackendType = "sqlite"
)

// EventsEnabled reports whether a broker URL was configured.
func (c Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case JSONBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
