// Package worker consumes transaction change events and writes an audit
// trail to the log.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
)

// EventSource delivers events until ctx is done or the connection drops.
// *amqp.Client implements it.
type EventSource interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
	Close() error
}

// DialFunc opens a new EventSource.
type DialFunc func(ctx context.Context) (EventSource, error)

// AuditWorker logs one audit line per change event.
type AuditWorker struct {
	logger *applog.Logger
	dial   DialFunc

	created atomic.Int64
	updated atomic.Int64
	deleted atomic.Int64

	// retryDelay is the pause before re-dialing after the source fails.
	retryDelay time.Duration
}

func NewAuditWorker(logger *applog.Logger, dial DialFunc) *AuditWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &AuditWorker{
		logger:     logger.WithComponent(applog.ComponentWorker),
		dial:       dial,
		retryDelay: 5 * time.Second,
	}
}

// HandleEvent records e. Unknown event types are rejected so the broker
// does not ack them silently.
func (w *AuditWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	fields := applog.LogFields{
		applog.FieldEventType:     string(e.Type),
		applog.FieldTransactionID: e.ID.String(),
		"event_time":              e.Timestamp.Format(time.RFC3339),
	}
	if e.Transaction != nil {
		fields.WithTransaction(e.ID.String(), e.Transaction.Date.String(), e.Transaction.Category, e.Transaction.Amount)
	}

	switch e.Type {
	case amqp.EventCreated:
		w.created.Add(1)
	case amqp.EventUpdated:
		w.updated.Add(1)
	case amqp.EventDeleted:
		w.deleted.Add(1)
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}

	w.logger.InfoContext(ctx, "Transaction audit", fields.ToSlice()...)
	return nil
}

// Stats reports events handled per type.
type Stats struct {
	Created int64
	Updated int64
	Deleted int64
}

func (w *AuditWorker) Stats() Stats {
	return Stats{
		Created: w.created.Load(),
		Updated: w.updated.Load(),
		Deleted: w.deleted.Load(),
	}
}

// Run consumes events until ctx is cancelled, re-dialing whenever the
// source fails.
func (w *AuditWorker) Run(ctx context.Context) error {
	if w.dial == nil {
		return errors.New("audit worker has no event source")
	}

	for {
		err := w.consumeOnce(ctx)
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "Audit worker stopped", "stats", w.Stats())
			return nil
		}
		w.logger.LogError(ctx, "Event consumption interrupted, retrying", err, applog.OpConsume, nil)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *AuditWorker) consumeOnce(ctx context.Context) error {
	src, err := w.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial event source: %w", err)
	}
	defer src.Close()
	return src.ConsumeEvents(ctx, w.HandleEvent)
}
