// Package services orchestrates the transaction store and change events.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// EventPublisher sends change events. *amqp.Client implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

// TransactionService applies mutations to the store and announces them.
// Publishing is best effort: a failed publish is logged and the mutation
// still succeeds.
type TransactionService struct {
	store     *ledger.Store
	publisher EventPublisher
	closers   []io.Closer
}

// NewTransactionService wires a store with an optional publisher. closers
// are released by Close in order.
func NewTransactionService(store *ledger.Store, publisher EventPublisher, closers ...io.Closer) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		closers:   closers,
	}
}

func (s *TransactionService) Create(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	t, err := s.store.Create(ctx, n)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventCreated, t.ID, &t))
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, f core.Filter) []core.Transaction {
	return s.store.List(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

func (s *TransactionService) Update(ctx context.Context, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error) {
	t, err := s.store.Update(ctx, id, p)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, t.ID, &t))
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, id, nil))
	return nil
}

func (s *TransactionService) Summarize(ctx context.Context, f core.SummaryFilter) core.Summary {
	return s.store.Summarize(ctx, f)
}

func (s *TransactionService) Stats() ledger.Stats {
	return s.store.Stats()
}

func (s *TransactionService) publish(ctx context.Context, e *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(context.WithoutCancel(ctx), e); err != nil {
		applog.FromContext(ctx).LogError(ctx, "Failed to publish transaction event", err, applog.OpPublish,
			applog.LogFields{applog.FieldEventType: string(e.Type), applog.FieldTransactionID: e.ID.String()})
	}
}

// Close releases storage and messaging resources.
func (s *TransactionService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
