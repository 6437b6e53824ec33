package billing

import (
	"context"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ChargeRepository defines the interface for the append-only charge ledger.
// Implementations must enforce the (evaluation_session_id, kind) and
// question_answer_id uniqueness constraints at the storage level: the
// check-then-act idempotency in the application layer is not race-free on its
// own, the constraint is the actual safety mechanism.
type ChargeRepository interface {
	// InsertIgnoreDuplicate inserts a charge, silently skipping rows that
	// violate the ledger uniqueness constraints. Returns true when the row
	// was inserted, false when an equivalent charge already existed.
	InsertIgnoreDuplicate(ctx context.Context, charge *Charge) (bool, error)

	// FindByID retrieves a charge by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Charge, error)

	// FindBySessionAndKind retrieves the charge for (session, kind); for
	// PER_QUESTION_ANALYSIS pass the question answer ID.
	FindBySessionAndKind(ctx context.Context, sessionID uuid.UUID, kind ChargeKind, questionAnswerID *uuid.UUID) (*Charge, error)

	// FindBySession retrieves all charges attributed to a session
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]*Charge, error)

	// FindByInvoice retrieves all charges attached to an invoice
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Charge, error)

	// FindByAccount retrieves all charges of an account, oldest first
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*Charge, error)

	// SumBilledByAccount returns SUM(billed_amount) over all of the
	// account's charges, the basis of every derived balance.
	SumBilledByAccount(ctx context.Context, accountID uuid.UUID) (valueobject.Money, error)

	// AggregateForInvoice recomputes the invoice totals as a full sum over
	// the invoice's current charges.
	AggregateForInvoice(ctx context.Context, invoiceID uuid.UUID) (InvoiceTotals, error)

	// ListAccountIDs returns the distinct account IDs present in the ledger
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)
}

// InvoiceRepository defines the interface for invoice persistence.
// Implementations must enforce uniqueness on (account_id, month, year).
type InvoiceRepository interface {
	// Save persists a new invoice
	Save(ctx context.Context, invoice *Invoice) error

	// Update persists invoice mutations (totals, status transitions)
	Update(ctx context.Context, invoice *Invoice) error

	// FindByID retrieves an invoice by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByAccountAndPeriod retrieves the invoice for one account month,
	// or shared.ErrNotFound
	FindByAccountAndPeriod(ctx context.Context, accountID uuid.UUID, period ReferencePeriod) (*Invoice, error)

	// FindByAccount retrieves all invoices of an account, newest period first
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*Invoice, error)

	// FindOpenByPeriod retrieves all open invoices of a period, for month close
	FindOpenByPeriod(ctx context.Context, period ReferencePeriod) ([]*Invoice, error)

	// FindDueBefore retrieves open invoices whose due date passed
	FindDueBefore(ctx context.Context, asOf time.Time) ([]*Invoice, error)
}

// CreditGrantRepository defines the interface for extra-credit grants
type CreditGrantRepository interface {
	// Upsert creates or replaces the grant for an account
	Upsert(ctx context.Context, grant *CreditGrant) error

	// ExtraCreditFor returns the account's extra credit, zero when no grant exists
	ExtraCreditFor(ctx context.Context, accountID uuid.UUID) (valueobject.Money, error)
}

// ThresholdMarkRepository stores the durable one-time notification marks
type ThresholdMarkRepository interface {
	// InsertIgnoreDuplicate records a mark, skipping rows that violate the
	// (account_id, threshold) uniqueness constraint. Returns true when the
	// mark was newly recorded.
	InsertIgnoreDuplicate(ctx context.Context, mark *ThresholdMark) (bool, error)

	// FindByAccount retrieves all marks recorded for an account
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*ThresholdMark, error)

	// DeleteByAccount clears an account's marks (operator reset)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}
