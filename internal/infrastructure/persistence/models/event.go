package models

import (
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/google/uuid"
)

// BillingEventModel is the persistence model for the append-only event
// journal. Rows are written once and never updated, so the model carries no
// UpdatedAt.
type BillingEventModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	EventType     string    `gorm:"type:varchar(64);not null;index"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null"`
	AggregateType string    `gorm:"type:varchar(32);not null"`
	AccountID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Payload       []byte    `gorm:"type:jsonb;not null"`
	OccurredAt    time.Time `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillingEventModel) TableName() string {
	return "billing_events"
}

// ToRecord converts the persistence model to a shared EventRecord
func (m *BillingEventModel) ToRecord() shared.EventRecord {
	return shared.EventRecord{
		EventID:       m.ID,
		EventType:     m.EventType,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		AccountID:     m.AccountID,
		Payload:       m.Payload,
		OccurredAt:    m.OccurredAt,
	}
}

// FromRecord populates the persistence model from a shared EventRecord
func (m *BillingEventModel) FromRecord(r shared.EventRecord) {
	m.ID = r.EventID
	m.EventType = r.EventType
	m.AggregateID = r.AggregateID
	m.AggregateType = r.AggregateType
	m.AccountID = r.AccountID
	m.Payload = r.Payload
	m.OccurredAt = r.OccurredAt
}
