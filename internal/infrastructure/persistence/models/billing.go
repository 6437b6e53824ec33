package models

import (
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeModel is the persistence model for the immutable charge ledger.
// Idempotency rests on the two uniqueness constraints: at most one base fee
// per evaluation session and at most one analysis charge per question answer.
type ChargeModel struct {
	BaseModel
	AccountID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	InvoiceID           *uuid.UUID           `gorm:"type:uuid;index"`
	EvaluationSessionID uuid.UUID            `gorm:"type:uuid;not null;index;uniqueIndex:idx_charges_base_fee_session,where:kind = 'BASE_FEE_PER_CANDIDATE'"`
	QuestionAnswerID    *uuid.UUID           `gorm:"type:uuid;uniqueIndex:idx_charges_question_answer"`
	Kind                billing.ChargeKind   `gorm:"type:varchar(32);not null;index"`
	ProviderCost        decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	MarkupMultiplier    decimal.Decimal      `gorm:"type:decimal(18,6);not null"`
	BilledAmount        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Status              billing.ChargeStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	SettledAt           *time.Time
}

// TableName returns the table name for GORM
func (ChargeModel) TableName() string {
	return "charges"
}

// ToDomain converts the persistence model to a domain Charge
func (m *ChargeModel) ToDomain() *billing.Charge {
	return &billing.Charge{
		BaseEntity:          m.BaseModel.ToDomain(),
		AccountID:           m.AccountID,
		InvoiceID:           m.InvoiceID,
		EvaluationSessionID: m.EvaluationSessionID,
		QuestionAnswerID:    m.QuestionAnswerID,
		Kind:                m.Kind,
		ProviderCost:        valueobject.NewMoneyBRL(m.ProviderCost),
		MarkupMultiplier:    valueobject.NewMoneyBRL(m.MarkupMultiplier),
		BilledAmount:        valueobject.NewMoneyBRL(m.BilledAmount),
		Status:              m.Status,
		SettledAt:           m.SettledAt,
	}
}

// FromDomain populates the persistence model from a domain Charge
func (m *ChargeModel) FromDomain(c *billing.Charge) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.AccountID = c.AccountID
	m.InvoiceID = c.InvoiceID
	m.EvaluationSessionID = c.EvaluationSessionID
	m.QuestionAnswerID = c.QuestionAnswerID
	m.Kind = c.Kind
	m.ProviderCost = c.ProviderCost.Amount()
	m.MarkupMultiplier = c.MarkupMultiplier.Amount()
	m.BilledAmount = c.BilledAmount.Amount()
	m.Status = c.Status
	m.SettledAt = c.SettledAt
}

// InvoiceModel is the persistence model for monthly invoices.
// Exactly one invoice exists per (account, month, year).
type InvoiceModel struct {
	BaseModel
	AccountID      uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_account_period,priority:1"`
	Month          int                   `gorm:"not null;uniqueIndex:idx_invoices_account_period,priority:2"`
	Year           int                   `gorm:"not null;uniqueIndex:idx_invoices_account_period,priority:3"`
	Status         billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	TotalBilled    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalPaid      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	SessionCount   int64                 `gorm:"not null;default:0"`
	QuestionCount  int64                 `gorm:"not null;default:0"`
	CandidateCount int64                 `gorm:"not null;default:0"`
	DueDate        *time.Time            `gorm:"index"`
	ClosedAt       *time.Time
	PaidAt         *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseEntity: m.BaseModel.ToDomain(),
		AccountID:  m.AccountID,
		Period: billing.ReferencePeriod{
			Month: time.Month(m.Month),
			Year:  m.Year,
		},
		Status:         m.Status,
		TotalBilled:    valueobject.NewMoneyBRL(m.TotalBilled),
		TotalPaid:      valueobject.NewMoneyBRL(m.TotalPaid),
		SessionCount:   m.SessionCount,
		QuestionCount:  m.QuestionCount,
		CandidateCount: m.CandidateCount,
		DueDate:        m.DueDate,
		ClosedAt:       m.ClosedAt,
		PaidAt:         m.PaidAt,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(i *billing.Invoice) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.AccountID = i.AccountID
	m.Month = int(i.Period.Month)
	m.Year = i.Period.Year
	m.Status = i.Status
	m.TotalBilled = i.TotalBilled.Amount()
	m.TotalPaid = i.TotalPaid.Amount()
	m.SessionCount = i.SessionCount
	m.QuestionCount = i.QuestionCount
	m.CandidateCount = i.CandidateCount
	m.DueDate = i.DueDate
	m.ClosedAt = i.ClosedAt
	m.PaidAt = i.PaidAt
}

// CreditGrantModel is the persistence model for extra-credit grants.
// One row per account; absence means no extra credit.
type CreditGrantModel struct {
	BaseModel
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_credit_grants_account"`
	ExtraCredit decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GrantedBy   string          `gorm:"type:varchar(200)"`
	Reason      string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CreditGrantModel) TableName() string {
	return "credit_grants"
}

// ToDomain converts the persistence model to a domain CreditGrant
func (m *CreditGrantModel) ToDomain() *billing.CreditGrant {
	return &billing.CreditGrant{
		BaseEntity:  m.BaseModel.ToDomain(),
		AccountID:   m.AccountID,
		ExtraCredit: valueobject.NewMoneyBRL(m.ExtraCredit),
		GrantedBy:   m.GrantedBy,
		Reason:      m.Reason,
	}
}

// FromDomain populates the persistence model from a domain CreditGrant
func (m *CreditGrantModel) FromDomain(g *billing.CreditGrant) {
	m.FromDomainBaseEntity(g.BaseEntity)
	m.AccountID = g.AccountID
	m.ExtraCredit = g.ExtraCredit.Amount()
	m.GrantedBy = g.GrantedBy
	m.Reason = g.Reason
}

// ThresholdMarkModel records sent usage-threshold notifications.
// The (account, threshold) uniqueness backs the one-time guarantee.
type ThresholdMarkModel struct {
	BaseModel
	AccountID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_threshold_marks_account_threshold,priority:1"`
	Threshold  int       `gorm:"not null;uniqueIndex:idx_threshold_marks_account_threshold,priority:2"`
	NotifiedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ThresholdMarkModel) TableName() string {
	return "threshold_marks"
}

// ToDomain converts the persistence model to a domain ThresholdMark
func (m *ThresholdMarkModel) ToDomain() *billing.ThresholdMark {
	return &billing.ThresholdMark{
		BaseEntity: m.BaseModel.ToDomain(),
		AccountID:  m.AccountID,
		Threshold:  billing.UsageThreshold(m.Threshold),
		NotifiedAt: m.NotifiedAt,
	}
}

// FromDomain populates the persistence model from a domain ThresholdMark
func (m *ThresholdMarkModel) FromDomain(t *billing.ThresholdMark) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.AccountID = t.AccountID
	m.Threshold = int(t.Threshold)
	m.NotifiedAt = t.NotifiedAt
}
