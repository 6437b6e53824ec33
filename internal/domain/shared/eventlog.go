package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRecord is one domain event persisted in its serialized form.
// Records are append-only; the journal is the audit trail of everything the
// billing pipeline published.
type EventRecord struct {
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	AccountID     uuid.UUID
	Payload       []byte
	OccurredAt    time.Time
}

// EventLog persists serialized domain events
type EventLog interface {
	// Append stores one event record
	Append(ctx context.Context, record EventRecord) error
	// FindByAccount returns the account's records, newest first
	FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]EventRecord, error)
}
