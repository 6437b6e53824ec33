package billing

import (
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Event types published by the billing context
const (
	EventTypeAccountOverspent      = "billing.account.overspent"
	EventTypeThresholdCrossed      = "billing.credit.threshold_crossed"
	EventTypeDiscrepancyEscalated  = "billing.reconciliation.discrepancy_escalated"
	EventTypeInvoiceRecomputed     = "billing.invoice.recomputed"
)

// AccountOverspentEvent is published when charging pushes an account's derived
// balance to or below zero. The work already happened, so the charge is still
// recorded; this event feeds the notification pipeline.
type AccountOverspentEvent struct {
	shared.BaseDomainEvent
	Balance valueobject.Money `json:"balance"`
	Ceiling valueobject.Money `json:"ceiling"`
}

// NewAccountOverspentEvent creates an overspend notification event
func NewAccountOverspentEvent(accountID uuid.UUID, balance, ceiling valueobject.Money) *AccountOverspentEvent {
	return &AccountOverspentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountOverspent, "Account", accountID, accountID),
		Balance:         balance,
		Ceiling:         ceiling,
	}
}

// ThresholdCrossedEvent is published at most once per (account, threshold)
// until an operator resets the marks.
type ThresholdCrossedEvent struct {
	shared.BaseDomainEvent
	Threshold   UsageThreshold    `json:"threshold"`
	TotalBilled valueobject.Money `json:"total_billed"`
	Ceiling     valueobject.Money `json:"ceiling"`
}

// NewThresholdCrossedEvent creates a threshold notification event
func NewThresholdCrossedEvent(accountID uuid.UUID, threshold UsageThreshold, totalBilled, ceiling valueobject.Money) *ThresholdCrossedEvent {
	return &ThresholdCrossedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeThresholdCrossed, "Account", accountID, accountID),
		Threshold:       threshold,
		TotalBilled:     totalBilled,
		Ceiling:         ceiling,
	}
}

// DiscrepancyEscalatedEvent is published for every uncorrectable discrepancy
// after the support ticket attempt, whether or not the ticket was created.
type DiscrepancyEscalatedEvent struct {
	shared.BaseDomainEvent
	Kind   DiscrepancyKind `json:"kind"`
	Detail string          `json:"detail"`
}

// NewDiscrepancyEscalatedEvent creates an escalation event
func NewDiscrepancyEscalatedEvent(accountID uuid.UUID, d *Discrepancy) *DiscrepancyEscalatedEvent {
	return &DiscrepancyEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDiscrepancyEscalated, "Account", accountID, accountID),
		Kind:            d.Kind,
		Detail:          d.Describe(),
	}
}
