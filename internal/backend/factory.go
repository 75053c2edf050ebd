// Package backend assembles the transaction service from configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// persister is a ledger.Persister that owns resources.
type persister interface {
	ledger.Persister
	io.Closer
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens storage, loads the collection and connects the
// optional event publisher. An unreachable broker is logged and the service
// runs without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p, err := f.openPersister(config)
	if err != nil {
		return nil, err
	}

	ctx = applog.NewContext(ctx, f.logger)

	var summaries *cache.Cache[core.Summary]
	if config.SummaryCacheTTL > 0 {
		summaries = cache.New[core.Summary](config.SummaryCacheTTL, 2*config.SummaryCacheTTL)
	}
	store := ledger.Open(ctx, p,
		ledger.WithSummaryCache(summaries),
		ledger.WithLogger(f.logger.WithComponent(applog.ComponentLedger)))

	closers := []io.Closer{p}
	var publisher services.EventPublisher
	if config.EventsEnabled() {
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				applog.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
			closers = append(closers, client)
		}
	}

	svc := services.NewTransactionService(store, publisher, closers...)

	f.logger.InfoContext(ctx, "Initialized backend",
		applog.FieldBackend, config.Type.String(),
		applog.FieldCount, store.Len(),
		"events_enabled", publisher != nil)

	return &BackendResult{
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) openPersister(config Config) (persister, error) {
	switch config.Type {
	case JSONBackend:
		f.logger.Info("Using JSON file storage", applog.FieldPathOnDisk, config.DataFile)
		return storage.NewJSONFile(config.DataFile), nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Using SQLite storage", applog.FieldPathOnDisk, config.SQLiteDBPath)
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// Close runs cleanup with a deadline so a hung broker cannot block exit.
func Close(result *BackendResult, timeout time.Duration) error {
	if result == nil || result.Cleanup == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- result.Cleanup() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return errors.New("backend cleanup timed out")
	}
}
