package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
)

// AdmissionResponse reports whether a costed operation may start and the
// derived standing it was decided on
type AdmissionResponse struct {
	Allowed    bool              `json:"allowed"`
	ReasonCode string            `json:"reason_code,omitempty"`
	Balance    valueobject.Money `json:"balance"`
	Ceiling    valueobject.Money `json:"ceiling"`
}

// NewAdmissionResponse converts a domain admission decision to its API shape
func NewAdmissionResponse(d *billing.AdmissionDecision) AdmissionResponse {
	return AdmissionResponse{
		Allowed:    d.Allowed,
		ReasonCode: d.ReasonCode,
		Balance:    d.Balance,
		Ceiling:    d.Ceiling,
	}
}

// BalanceResponse exposes an account's derived balance
type BalanceResponse struct {
	AccountID   uuid.UUID         `json:"account_id"`
	Balance     valueobject.Money `json:"balance"`
	Ceiling     valueobject.Money `json:"ceiling"`
	TotalBilled valueobject.Money `json:"total_billed"`
}

// GrantCreditRequest grants extra credit on top of the free tier
type GrantCreditRequest struct {
	ExtraCredit string `json:"extra_credit" binding:"required"`
	GrantedBy   string `json:"granted_by" binding:"required"`
	Reason      string `json:"reason"`
}

// PayInvoiceRequest records a payment against an invoice
type PayInvoiceRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// CloseMonthRequest selects the reference period to close. When omitted the
// previous calendar month is closed.
type CloseMonthRequest struct {
	Year  int `json:"year"`
	Month int `json:"month" binding:"omitempty,min=1,max=12"`
}

// ThresholdCheckResponse lists the usage thresholds newly crossed by a check
type ThresholdCheckResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Notified  []int     `json:"notified"`
}

// ThresholdResetResponse reports how many durable threshold marks were cleared
type ThresholdResetResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Deleted   int64     `json:"deleted"`
}

// InvoiceResponse is the API shape of an invoice
type InvoiceResponse struct {
	ID             uuid.UUID         `json:"id"`
	AccountID      uuid.UUID         `json:"account_id"`
	Month          int               `json:"month"`
	Year           int               `json:"year"`
	Status         string            `json:"status"`
	TotalBilled    valueobject.Money `json:"total_billed"`
	TotalPaid      valueobject.Money `json:"total_paid"`
	SessionCount   int64             `json:"session_count"`
	QuestionCount  int64             `json:"question_count"`
	CandidateCount int64             `json:"candidate_count"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
}

// NewInvoiceResponse converts a domain invoice to its API shape
func NewInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		AccountID:      inv.AccountID,
		Month:          int(inv.Period.Month),
		Year:           inv.Period.Year,
		Status:         string(inv.Status),
		TotalBilled:    inv.TotalBilled,
		TotalPaid:      inv.TotalPaid,
		SessionCount:   inv.SessionCount,
		QuestionCount:  inv.QuestionCount,
		CandidateCount: inv.CandidateCount,
		DueDate:        inv.DueDate,
		ClosedAt:       inv.ClosedAt,
		PaidAt:         inv.PaidAt,
	}
}

// NewInvoiceListResponse converts a list of domain invoices
func NewInvoiceListResponse(invoices []*billing.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, NewInvoiceResponse(inv))
	}
	return out
}

// BillingEventResponse is the API shape of one journaled billing event
type BillingEventResponse struct {
	EventID    uuid.UUID   `json:"event_id"`
	Type       string      `json:"type"`
	AccountID  uuid.UUID   `json:"account_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NewBillingEventListResponse converts journaled domain events to their API shape
func NewBillingEventListResponse(events []shared.DomainEvent) []BillingEventResponse {
	out := make([]BillingEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, BillingEventResponse{
			EventID:    e.EventID(),
			Type:       e.EventType(),
			AccountID:  e.AccountID(),
			OccurredAt: e.OccurredAt(),
			Payload:    e,
		})
	}
	return out
}

// CloseMonthResponse reports the outcome of a month close run
type CloseMonthResponse struct {
	Month  int `json:"month"`
	Year   int `json:"year"`
	Closed int `json:"closed"`
}

// OverdueCheckResponse reports how many invoices were newly marked overdue
type OverdueCheckResponse struct {
	MarkedOverdue int `json:"marked_overdue"`
}
