package event

import (
	"context"
	"fmt"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Journal subscribes to every event on the bus and appends it to the event
// log in serialized form. The stored payloads deserialize back into their
// registered concrete types, giving each account a readable audit trail of
// overspends, threshold crossings and escalations.
type Journal struct {
	log        shared.EventLog
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewJournal creates a journal over the given event log
func NewJournal(log shared.EventLog, serializer *EventSerializer, logger *zap.Logger) *Journal {
	return &Journal{
		log:        log,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes returns an empty slice: the journal records every event type
func (j *Journal) EventTypes() []string {
	return nil
}

// Handle serializes the event and appends it to the log
func (j *Journal) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := j.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.EventType(), err)
	}

	record := shared.EventRecord{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		AccountID:     event.AccountID(),
		Payload:       payload,
		OccurredAt:    event.OccurredAt(),
	}
	if err := j.log.Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append event %s to journal: %w", event.EventID(), err)
	}
	return nil
}

// AccountEvents reads back the account's recorded events, newest first,
// deserialized into their concrete types. Records of an unregistered type are
// skipped with a warning rather than failing the whole read.
func (j *Journal) AccountEvents(ctx context.Context, accountID uuid.UUID, limit int) ([]shared.DomainEvent, error) {
	records, err := j.log.FindByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read event journal: %w", err)
	}

	events := make([]shared.DomainEvent, 0, len(records))
	for _, record := range records {
		event, err := j.serializer.Deserialize(record.EventType, record.Payload)
		if err != nil {
			j.logger.Warn("Skipping unreadable journal record",
				zap.String("event_id", record.EventID.String()),
				zap.String("event_type", record.EventType),
				zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Ensure Journal implements EventHandler
var _ shared.EventHandler = (*Journal)(nil)
