package billing

import (
	"context"
	"errors"
	"fmt"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/evaluation"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChargeResult reports what charging produced for one evaluation session.
// A fully duplicate call yields BaseFeeCharged=false and zero QuestionCharges.
type ChargeResult struct {
	SessionID         uuid.UUID `json:"session_id"`
	AccountID         uuid.UUID `json:"account_id"`
	InvoiceID         uuid.UUID `json:"invoice_id"`
	BaseFeeCharged    bool      `json:"base_fee_charged"`
	QuestionCharges   int       `json:"question_charges"`
	SkippedDuplicates int       `json:"skipped_duplicates"`
}

// ChargeService records ledger charges for evaluated sessions. Charging is
// idempotent: a cheap read skips sessions that are already fully billed, and
// the ledger uniqueness constraints absorb the races the read cannot see.
type ChargeService struct {
	db          *persistence.Database
	chargeRepo  *persistence.GormChargeRepository
	invoiceRepo *persistence.GormInvoiceRepository
	sessionRepo evaluation.SessionRepository
	creditRepo  domainBilling.CreditGrantRepository
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewChargeService creates a new ChargeService
func NewChargeService(
	db *persistence.Database,
	chargeRepo *persistence.GormChargeRepository,
	invoiceRepo *persistence.GormInvoiceRepository,
	sessionRepo evaluation.SessionRepository,
	creditRepo domainBilling.CreditGrantRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ChargeService {
	return &ChargeService{
		db:          db,
		chargeRepo:  chargeRepo,
		invoiceRepo: invoiceRepo,
		sessionRepo: sessionRepo,
		creditRepo:  creditRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// ChargeForEvaluationSession bills one evaluated session: the per-candidate
// base fee plus one analysis charge per answered question, all inside a single
// transaction together with the invoice totals recompute. Safe to call any
// number of times for the same session.
func (s *ChargeService) ChargeForEvaluationSession(ctx context.Context, sessionID uuid.UUID) (*ChargeResult, error) {
	if sessionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SESSION", "Evaluation session ID cannot be empty")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("SESSION_NOT_FOUND", "Evaluation session not found")
		}
		return nil, fmt.Errorf("failed to load evaluation session: %w", err)
	}
	if !session.IsEvaluated() {
		return nil, shared.ErrSessionNotEvaluated
	}

	answers, err := s.sessionRepo.AnswersForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session answers: %w", err)
	}

	// Fast path: skip the transaction entirely when every expected charge is
	// already on the ledger. Concurrent callers that slip past this read are
	// caught by the uniqueness constraints below.
	billed, err := s.chargeRepo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing charges: %w", err)
	}
	if fullyBilled(billed, len(answers)) {
		s.logger.Debug("Session already fully billed",
			zap.String("session_id", sessionID.String()),
			zap.Int("charge_count", len(billed)))
		result := &ChargeResult{
			SessionID:         sessionID,
			AccountID:         session.AccountID,
			SkippedDuplicates: len(billed),
		}
		if billed[0].InvoiceID != nil {
			result.InvoiceID = *billed[0].InvoiceID
		}
		return result, nil
	}

	result := &ChargeResult{SessionID: sessionID, AccountID: session.AccountID}
	period := domainBilling.PeriodOf(*session.EvaluatedAt)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		charges := s.chargeRepo.WithTx(tx)
		invoices := s.invoiceRepo.WithTx(tx)

		invoice, err := s.ensureInvoice(ctx, invoices, session.AccountID, period)
		if err != nil {
			return err
		}
		result.InvoiceID = invoice.ID

		baseFee, err := domainBilling.NewBaseFeeCharge(session.AccountID, session.ID)
		if err != nil {
			return err
		}
		if err := baseFee.AttachToInvoice(invoice.ID); err != nil {
			return err
		}
		inserted, err := charges.InsertIgnoreDuplicate(ctx, baseFee)
		if err != nil {
			return fmt.Errorf("failed to insert base fee charge: %w", err)
		}
		result.BaseFeeCharged = inserted
		if !inserted {
			result.SkippedDuplicates++
		}

		for _, answer := range answers {
			cost := domainBilling.CostOfQuestionAnalysis(answer.InputTokenCount, answer.OutputTokenCount).
				MustAdd(domainBilling.CostOfTranscription(answer.DurationSeconds))
			charge, err := domainBilling.NewQuestionAnalysisCharge(session.AccountID, session.ID, answer.ID, cost)
			if err != nil {
				return err
			}
			if err := charge.AttachToInvoice(invoice.ID); err != nil {
				return err
			}
			inserted, err := charges.InsertIgnoreDuplicate(ctx, charge)
			if err != nil {
				return fmt.Errorf("failed to insert question charge: %w", err)
			}
			if inserted {
				result.QuestionCharges++
			} else {
				result.SkippedDuplicates++
			}
		}

		totals, err := charges.AggregateForInvoice(ctx, invoice.ID)
		if err != nil {
			return fmt.Errorf("failed to aggregate invoice totals: %w", err)
		}
		invoice.ApplyTotals(totals)
		return invoices.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Charged evaluation session",
		zap.String("session_id", sessionID.String()),
		zap.String("account_id", session.AccountID.String()),
		zap.String("invoice_id", result.InvoiceID.String()),
		zap.Bool("base_fee_charged", result.BaseFeeCharged),
		zap.Int("question_charges", result.QuestionCharges),
		zap.Int("skipped_duplicates", result.SkippedDuplicates))

	if result.BaseFeeCharged || result.QuestionCharges > 0 {
		s.notifyIfOverspent(ctx, session.AccountID)
	}
	return result, nil
}

// ensureInvoice returns the open invoice of the account period, creating it
// lazily on first use. A concurrent creator winning the race surfaces as
// INVOICE_EXISTS, in which case the winner's row is read back.
func (s *ChargeService) ensureInvoice(ctx context.Context, invoices *persistence.GormInvoiceRepository, accountID uuid.UUID, period domainBilling.ReferencePeriod) (*domainBilling.Invoice, error) {
	invoice, err := invoices.FindByAccountAndPeriod(ctx, accountID, period)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}

	invoice, err = domainBilling.NewInvoice(accountID, period)
	if err != nil {
		return nil, err
	}
	if err := invoices.Save(ctx, invoice); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "INVOICE_EXISTS" {
			return invoices.FindByAccountAndPeriod(ctx, accountID, period)
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

// notifyIfOverspent publishes the overspend event when the derived balance is
// no longer positive. The charge stays on the ledger either way; overspend is
// a notification concern, not a rollback.
func (s *ChargeService) notifyIfOverspent(ctx context.Context, accountID uuid.UUID) {
	extra, err := s.creditRepo.ExtraCreditFor(ctx, accountID)
	if err != nil {
		s.logger.Warn("Failed to load extra credit for overspend check",
			zap.String("account_id", accountID.String()), zap.Error(err))
		return
	}
	ceiling := domainBilling.CreditCeiling(extra)

	totalBilled, err := s.chargeRepo.SumBilledByAccount(ctx, accountID)
	if err != nil {
		s.logger.Warn("Failed to sum billed amount for overspend check",
			zap.String("account_id", accountID.String()), zap.Error(err))
		return
	}

	decision := domainBilling.Admit(ceiling, totalBilled)
	if decision.Allowed {
		return
	}

	s.logger.Warn("Account overspent its credit ceiling",
		zap.String("account_id", accountID.String()),
		zap.String("balance", decision.Balance.String()),
		zap.String("ceiling", ceiling.String()))

	event := domainBilling.NewAccountOverspentEvent(accountID, decision.Balance, ceiling)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish overspend event",
			zap.String("account_id", accountID.String()), zap.Error(err))
	}
}

// fullyBilled reports whether the existing charges already cover the base fee
// and every answered question.
func fullyBilled(charges []*domainBilling.Charge, answerCount int) bool {
	if len(charges) == 0 {
		return false
	}
	var baseFee bool
	var questions int
	for _, c := range charges {
		switch c.Kind {
		case domainBilling.ChargeKindBaseFeePerCandidate:
			baseFee = true
		case domainBilling.ChargeKindPerQuestionAnalysis:
			questions++
		}
	}
	return baseFee && questions >= answerCount
}
