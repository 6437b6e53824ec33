package billing

import (
	"context"
	"fmt"
	"time"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InvoiceServiceConfig contains configuration for InvoiceService
type InvoiceServiceConfig struct {
	// DueInterval is the time between closing an invoice and its due date
	DueInterval time.Duration
}

// InvoiceService manages the monthly invoice lifecycle: totals recompute,
// month close, payment confirmation and overdue transitions. Totals are always
// replaced with a full aggregate over the invoice's charges.
type InvoiceService struct {
	db          *persistence.Database
	chargeRepo  *persistence.GormChargeRepository
	invoiceRepo *persistence.GormInvoiceRepository
	logger      *zap.Logger
	config      InvoiceServiceConfig
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	db *persistence.Database,
	chargeRepo *persistence.GormChargeRepository,
	invoiceRepo *persistence.GormInvoiceRepository,
	logger *zap.Logger,
	config InvoiceServiceConfig,
) *InvoiceService {
	return &InvoiceService{
		db:          db,
		chargeRepo:  chargeRepo,
		invoiceRepo: invoiceRepo,
		logger:      logger,
		config:      config,
	}
}

// GetInvoice retrieves one invoice by its ID
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domainBilling.Invoice, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	return s.invoiceRepo.FindByID(ctx, invoiceID)
}

// ListInvoices retrieves all invoices of an account, newest period first
func (s *InvoiceService) ListInvoices(ctx context.Context, accountID uuid.UUID) ([]*domainBilling.Invoice, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	return s.invoiceRepo.FindByAccount(ctx, accountID)
}

// RecomputeInvoiceTotals replaces the invoice's cached aggregates with a full
// sum over its current charges and persists the result.
func (s *InvoiceService) RecomputeInvoiceTotals(ctx context.Context, invoiceID uuid.UUID) (*domainBilling.Invoice, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}

	var invoice *domainBilling.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		charges := s.chargeRepo.WithTx(tx)
		invoices := s.invoiceRepo.WithTx(tx)

		var err error
		invoice, err = invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}

		totals, err := charges.AggregateForInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to aggregate invoice totals: %w", err)
		}
		invoice.ApplyTotals(totals)
		return invoices.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice totals recomputed",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("total_billed", invoice.TotalBilled.String()),
		zap.Int64("session_count", invoice.SessionCount))
	return invoice, nil
}

// CloseMonth closes every open invoice of the given period, recomputing each
// total one last time and assigning the payment due date. Invoices that fail
// are logged and skipped so one bad row cannot block the rollover.
func (s *InvoiceService) CloseMonth(ctx context.Context, period domainBilling.ReferencePeriod) (closed int, err error) {
	open, err := s.invoiceRepo.FindOpenByPeriod(ctx, period)
	if err != nil {
		return 0, fmt.Errorf("failed to list open invoices: %w", err)
	}

	dueDate := time.Now().UTC().Add(s.config.DueInterval)
	for _, invoice := range open {
		if err := s.closeOne(ctx, invoice.ID, dueDate); err != nil {
			s.logger.Error("Failed to close invoice",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("period", period.String()),
				zap.Error(err))
			continue
		}
		closed++
	}

	s.logger.Info("Month closed",
		zap.String("period", period.String()),
		zap.Int("open_invoices", len(open)),
		zap.Int("closed", closed))
	return closed, nil
}

func (s *InvoiceService) closeOne(ctx context.Context, invoiceID uuid.UUID, dueDate time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		charges := s.chargeRepo.WithTx(tx)
		invoices := s.invoiceRepo.WithTx(tx)

		invoice, err := invoices.FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}

		totals, err := charges.AggregateForInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("failed to aggregate invoice totals: %w", err)
		}
		invoice.ApplyTotals(totals)

		if err := invoice.Close(dueDate); err != nil {
			return err
		}
		return invoices.Update(ctx, invoice)
	})
}

// MarkInvoicePaid records an external payment confirmation against the invoice
func (s *InvoiceService) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, amount valueobject.Money) (*domainBilling.Invoice, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.MarkPaid(amount); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	s.logger.Info("Invoice paid",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("account_id", invoice.AccountID.String()),
		zap.String("amount", amount.String()))
	return invoice, nil
}

// MarkOverdueInvoices transitions every open invoice whose due date has passed
// to OVERDUE and returns how many were transitioned.
func (s *InvoiceService) MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.invoiceRepo.FindDueBefore(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list due invoices: %w", err)
	}

	var marked int
	for _, invoice := range due {
		if err := invoice.MarkOverdue(asOf); err != nil {
			s.logger.Warn("Failed to mark invoice overdue",
				zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
			continue
		}
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			s.logger.Error("Failed to persist overdue transition",
				zap.String("invoice_id", invoice.ID.String()), zap.Error(err))
			continue
		}
		marked++
		s.logger.Info("Invoice marked overdue",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("account_id", invoice.AccountID.String()))
	}
	return marked, nil
}
