package billing

import (
	"fmt"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen      InvoiceStatus = "OPEN"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the invoice status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// ReferencePeriod is the calendar month an invoice covers
type ReferencePeriod struct {
	Month time.Month
	Year  int
}

// PeriodOf returns the reference period containing the given instant, in UTC.
// Charges are attributed to the month of the session's evaluation time, so
// repairs land on the original invoice, not the repair-time one.
func PeriodOf(t time.Time) ReferencePeriod {
	u := t.UTC()
	return ReferencePeriod{Month: u.Month(), Year: u.Year()}
}

// Start returns the first instant of the period in UTC
func (p ReferencePeriod) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following period in UTC
func (p ReferencePeriod) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// String returns e.g. "2026-03"
func (p ReferencePeriod) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// InvoiceTotals holds the cached aggregates of an invoice. They are always the
// result of a full recompute over the invoice's charges, never incremented.
type InvoiceTotals struct {
	TotalBilled    valueobject.Money
	SessionCount   int64
	QuestionCount  int64
	CandidateCount int64
}

// ZeroInvoiceTotals returns empty totals
func ZeroInvoiceTotals() InvoiceTotals {
	return InvoiceTotals{TotalBilled: valueobject.ZeroBRL()}
}

// Invoice is the monthly rollup of an account's charges. There is exactly one
// invoice per (account, month, year); it is created lazily on the first charge
// of the period with zero totals.
type Invoice struct {
	shared.BaseEntity
	AccountID uuid.UUID
	Period    ReferencePeriod
	Status    InvoiceStatus

	TotalBilled valueobject.Money
	TotalPaid   valueobject.Money

	// Display aggregates, recomputed together with TotalBilled
	SessionCount   int64
	QuestionCount  int64
	CandidateCount int64

	DueDate  *time.Time
	ClosedAt *time.Time
	PaidAt   *time.Time
}

// NewInvoice creates an open invoice with zero totals for the given period
func NewInvoice(accountID uuid.UUID, period ReferencePeriod) (*Invoice, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if period.Year < 2000 || period.Month < time.January || period.Month > time.December {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Invalid invoice reference period")
	}

	return &Invoice{
		BaseEntity:  shared.NewBaseEntity(),
		AccountID:   accountID,
		Period:      period,
		Status:      InvoiceStatusOpen,
		TotalBilled: valueobject.ZeroBRL(),
		TotalPaid:   valueobject.ZeroBRL(),
	}, nil
}

// ApplyTotals replaces the cached aggregates with a freshly recomputed set.
// This is the only way invoice totals change.
func (i *Invoice) ApplyTotals(totals InvoiceTotals) {
	i.TotalBilled = totals.TotalBilled
	i.SessionCount = totals.SessionCount
	i.QuestionCount = totals.QuestionCount
	i.CandidateCount = totals.CandidateCount
	i.UpdatedAt = time.Now().UTC()
}

// Close marks the invoice closed at month rollover, assigning the payment due
// date. Only open invoices can be closed.
func (i *Invoice) Close(dueDate time.Time) error {
	if i.Status != InvoiceStatusOpen {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot close invoice in %s status", i.Status))
	}
	if i.ClosedAt != nil {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already closed")
	}
	now := time.Now().UTC()
	i.ClosedAt = &now
	i.DueDate = &dueDate
	i.UpdatedAt = now
	return nil
}

// MarkPaid transitions the invoice to PAID on external payment confirmation
func (i *Invoice) MarkPaid(amount valueobject.Money) error {
	if i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot pay a cancelled invoice")
	}
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already paid")
	}
	now := time.Now().UTC()
	i.TotalPaid = amount
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	i.UpdatedAt = now
	return nil
}

// MarkOverdue transitions an unpaid invoice past its due date to OVERDUE
func (i *Invoice) MarkOverdue(asOf time.Time) error {
	if i.Status != InvoiceStatusOpen {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark invoice overdue in %s status", i.Status))
	}
	if i.DueDate == nil || asOf.Before(*i.DueDate) {
		return shared.NewDomainError("NOT_DUE", "Invoice is not past its due date")
	}
	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel voids the invoice. Paid invoices cannot be cancelled.
func (i *Invoice) Cancel() error {
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a paid invoice")
	}
	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now().UTC()
	return nil
}
