package event

import (
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
)

// RegisterAllEvents registers every domain event type with the serializer.
// This is required to deserialize persisted events back into their concrete
// types.
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(billing.EventTypeAccountOverspent, &billing.AccountOverspentEvent{})
	serializer.Register(billing.EventTypeThresholdCrossed, &billing.ThresholdCrossedEvent{})
	serializer.Register(billing.EventTypeDiscrepancyEscalated, &billing.DiscrepancyEscalatedEvent{})
}
