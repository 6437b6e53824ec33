package billing

import (
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ChargeKind identifies what a ledger charge is billing for
type ChargeKind string

const (
	// ChargeKindBaseFeePerCandidate is the flat fee charged once per evaluated candidate
	ChargeKindBaseFeePerCandidate ChargeKind = "BASE_FEE_PER_CANDIDATE"
	// ChargeKindPerQuestionAnalysis is charged once per AI-analyzed question answer
	ChargeKindPerQuestionAnalysis ChargeKind = "PER_QUESTION_ANALYSIS"
)

// IsValid checks if the charge kind is valid
func (k ChargeKind) IsValid() bool {
	switch k {
	case ChargeKindBaseFeePerCandidate, ChargeKindPerQuestionAnalysis:
		return true
	}
	return false
}

// String returns the string representation
func (k ChargeKind) String() string {
	return string(k)
}

// ChargeStatus represents the settlement state of a charge
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "PENDING"
	ChargeStatusSettled ChargeStatus = "SETTLED"
)

// IsValid checks if the charge status is valid
func (s ChargeStatus) IsValid() bool {
	switch s {
	case ChargeStatusPending, ChargeStatusSettled:
		return true
	}
	return false
}

// Charge is one immutable ledger row representing money owed for a metering
// event. A charge is never mutated after creation; the only allowed transition
// is PENDING to SETTLED. Corrections are made with new charges, never edits.
type Charge struct {
	shared.BaseEntity
	AccountID           uuid.UUID
	InvoiceID           *uuid.UUID // assigned lazily when attached to the period invoice
	EvaluationSessionID uuid.UUID
	QuestionAnswerID    *uuid.UUID // set for PER_QUESTION_ANALYSIS charges only
	Kind                ChargeKind
	ProviderCost        valueobject.Money // internal variable cost, margin tracking only
	MarkupMultiplier    valueobject.Money // billedAmount / providerCost snapshot factor
	BilledAmount        valueobject.Money
	Status              ChargeStatus
	SettledAt           *time.Time
}

// NewBaseFeeCharge creates the per-candidate base fee charge for an evaluation
// session. The charge settles immediately: by the time the ledger sees the
// session, the evaluation work has already happened.
func NewBaseFeeCharge(accountID, sessionID uuid.UUID) (*Charge, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if sessionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SESSION", "Evaluation session ID cannot be empty")
	}

	c := &Charge{
		BaseEntity:          shared.NewBaseEntity(),
		AccountID:           accountID,
		EvaluationSessionID: sessionID,
		Kind:                ChargeKindBaseFeePerCandidate,
		ProviderCost:        valueobject.ZeroBRL(),
		MarkupMultiplier:    valueobject.ZeroBRL(),
		BilledAmount:        valueobject.NewMoneyBRL(BaseFeePerCandidate),
		Status:              ChargeStatusPending,
	}
	c.Settle()
	return c, nil
}

// NewQuestionAnalysisCharge creates the per-question analysis charge for one
// answered question of an evaluation session.
func NewQuestionAnalysisCharge(accountID, sessionID, questionAnswerID uuid.UUID, providerCost valueobject.Money) (*Charge, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if sessionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SESSION", "Evaluation session ID cannot be empty")
	}
	if questionAnswerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_QUESTION_ANSWER", "Question answer ID cannot be empty")
	}

	billed := valueobject.NewMoneyBRL(PerQuestionAnalysisFee)
	c := &Charge{
		BaseEntity:          shared.NewBaseEntity(),
		AccountID:           accountID,
		EvaluationSessionID: sessionID,
		QuestionAnswerID:    &questionAnswerID,
		Kind:                ChargeKindPerQuestionAnalysis,
		ProviderCost:        providerCost,
		MarkupMultiplier:    markupFor(billed, providerCost),
		BilledAmount:        billed,
		Status:              ChargeStatusPending,
	}
	c.Settle()
	return c, nil
}

// markupFor computes the billed/cost factor snapshot stored alongside a charge.
// Zero cost yields a zero marker rather than a division error.
func markupFor(billed, cost valueobject.Money) valueobject.Money {
	if cost.IsZero() {
		return valueobject.ZeroBRL()
	}
	return valueobject.NewMoneyBRL(billed.Amount().Div(cost.Amount()))
}

// Settle marks the charge as settled. Settling an already settled charge is a
// no-op, keeping the transition idempotent.
func (c *Charge) Settle() {
	if c.Status == ChargeStatusSettled {
		return
	}
	now := time.Now().UTC()
	c.Status = ChargeStatusSettled
	c.SettledAt = &now
	c.UpdatedAt = now
}

// IsSettled returns true if the charge has been settled
func (c *Charge) IsSettled() bool {
	return c.Status == ChargeStatusSettled
}

// AttachToInvoice assigns the charge to an invoice. Attachment happens lazily
// on the first write touching the charge's reference period.
func (c *Charge) AttachToInvoice(invoiceID uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if c.InvoiceID != nil && *c.InvoiceID != invoiceID {
		return shared.NewDomainError("INVOICE_REASSIGNMENT", "Charge is already attached to a different invoice")
	}
	c.InvoiceID = &invoiceID
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ExpectedAmountFor returns the pricing-constant amount a charge of the given
// kind must carry. Used by reconciliation to detect amount mismatches.
func ExpectedAmountFor(kind ChargeKind) valueobject.Money {
	switch kind {
	case ChargeKindBaseFeePerCandidate:
		return valueobject.NewMoneyBRL(BaseFeePerCandidate)
	case ChargeKindPerQuestionAnalysis:
		return valueobject.NewMoneyBRL(PerQuestionAnalysisFee)
	default:
		return valueobject.ZeroBRL()
	}
}
