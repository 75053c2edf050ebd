package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EventType names a change to the transaction collection.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent is published after every successful mutation.
// Transaction is omitted for deletions.
type TransactionEvent struct {
	Type        EventType         `json:"type"`
	ID          uuid.UUID         `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds an event stamped with the current time.
func NewTransactionEvent(typ EventType, id uuid.UUID, t *core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Type:        typ,
		ID:          id,
		Transaction: t,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == uuid.Nil {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &e, nil
}
