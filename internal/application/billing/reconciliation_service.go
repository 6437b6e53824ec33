package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/evaluation"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconciliationConfig contains configuration for ReconciliationService
type ReconciliationConfig struct {
	// OrphanMatchWindow bounds how far around a charge's creation time to
	// look for a session an orphan charge could belong to
	OrphanMatchWindow time.Duration

	// UnbilledScanLimit bounds how many charge-less sessions one run pulls
	// in on top of the accounts already present in the ledger
	UnbilledScanLimit int
}

// DefaultReconciliationConfig returns default configuration
func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		OrphanMatchWindow: 24 * time.Hour,
		UnbilledScanLimit: 1000,
	}
}

// ReconciliationReport summarizes one reconciliation run
type ReconciliationReport struct {
	Success              bool  `json:"success"`
	TotalAccountsChecked int   `json:"totalAccountsChecked"`
	TotalDiscrepancies   int   `json:"totalDiscrepancies"`
	CorrectedCount       int   `json:"correctedCount"`
	UncorrectableCount   int   `json:"uncorrectableCount"`
	TicketCreated        bool  `json:"ticketCreated"`
	DurationMs           int64 `json:"durationMs"`
}

// ReconciliationService diffs the charge ledger against the evaluation ground
// truth account by account, repairs what the classifier rules allow and files
// support tickets for the rest. Repairs go through the same idempotent charge
// flow as live billing, so a run is always safe to repeat; a drift-free pass
// finds nothing and changes nothing.
type ReconciliationService struct {
	chargeRepo  *persistence.GormChargeRepository
	sessionRepo evaluation.SessionRepository
	charges     *ChargeService
	classifier  *domainBilling.Classifier
	escalator   domainBilling.SupportEscalator
	publisher   shared.EventPublisher
	logger      *zap.Logger
	config      ReconciliationConfig
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	chargeRepo *persistence.GormChargeRepository,
	sessionRepo evaluation.SessionRepository,
	charges *ChargeService,
	classifier *domainBilling.Classifier,
	escalator domainBilling.SupportEscalator,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	config ReconciliationConfig,
) *ReconciliationService {
	if classifier == nil {
		classifier = domainBilling.NewClassifier()
	}
	return &ReconciliationService{
		chargeRepo:  chargeRepo,
		sessionRepo: sessionRepo,
		charges:     charges,
		classifier:  classifier,
		escalator:   escalator,
		publisher:   publisher,
		logger:      logger,
		config:      config,
	}
}

// Run executes one full reconciliation pass over every known account
func (s *ReconciliationService) Run(ctx context.Context) (*ReconciliationReport, error) {
	start := time.Now()
	report := &ReconciliationReport{Success: true}

	accounts, err := s.accountsToCheck(ctx)
	if err != nil {
		return nil, err
	}
	report.TotalAccountsChecked = len(accounts)

	for _, accountID := range accounts {
		if ctx.Err() != nil {
			report.Success = false
			break
		}

		discrepancies, err := s.scanAccount(ctx, accountID)
		if err != nil {
			report.Success = false
			s.logger.Error("Reconciliation scan failed for account",
				zap.String("account_id", accountID.String()), zap.Error(err))
			continue
		}
		if len(discrepancies) == 0 {
			continue
		}
		report.TotalDiscrepancies += len(discrepancies)

		var uncorrectable []domainBilling.Discrepancy
		repairedSessions := make(map[uuid.UUID]bool)

		for i := range discrepancies {
			d := &discrepancies[i]
			s.classifier.Classify(d)

			if d.Classification == domainBilling.ClassificationCorrectable {
				if err := s.repair(ctx, d, repairedSessions); err != nil {
					s.logger.Warn("Repair failed, escalating discrepancy",
						zap.String("account_id", accountID.String()),
						zap.String("kind", string(d.Kind)),
						zap.Error(err))
					d.Classification = domainBilling.ClassificationUncorrectable
				} else {
					report.CorrectedCount++
					continue
				}
			}
			uncorrectable = append(uncorrectable, *d)
		}

		if len(uncorrectable) > 0 {
			report.UncorrectableCount += len(uncorrectable)
			if s.escalate(ctx, accountID, uncorrectable) {
				report.TicketCreated = true
			}
		}
	}

	report.DurationMs = time.Since(start).Milliseconds()
	s.logger.Info("Reconciliation run completed",
		zap.Bool("success", report.Success),
		zap.Int("accounts_checked", report.TotalAccountsChecked),
		zap.Int("discrepancies", report.TotalDiscrepancies),
		zap.Int("corrected", report.CorrectedCount),
		zap.Int("uncorrectable", report.UncorrectableCount),
		zap.Bool("ticket_created", report.TicketCreated),
		zap.Int64("duration_ms", report.DurationMs))
	return report, nil
}

// accountsToCheck unions the accounts present in the ledger with the accounts
// of evaluated sessions that have no charges at all, which the ledger alone
// would never surface.
func (s *ReconciliationService) accountsToCheck(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.chargeRepo.ListAccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger accounts: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	unbilled, err := s.sessionRepo.FindEvaluatedUnbilled(ctx, 0, s.config.UnbilledScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled sessions: %w", err)
	}
	for _, session := range unbilled {
		if !seen[session.AccountID] {
			seen[session.AccountID] = true
			ids = append(ids, session.AccountID)
		}
	}
	return ids, nil
}

// scanAccount diffs one account's ledger against the evaluation ground truth
func (s *ReconciliationService) scanAccount(ctx context.Context, accountID uuid.UUID) ([]domainBilling.Discrepancy, error) {
	charges, err := s.chargeRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account charges: %w", err)
	}

	bySession := make(map[uuid.UUID][]*domainBilling.Charge)
	for _, c := range charges {
		bySession[c.EvaluationSessionID] = append(bySession[c.EvaluationSessionID], c)
	}

	var found []domainBilling.Discrepancy

	// Amount mismatches are detectable from the ledger alone
	for _, c := range charges {
		expected := domainBilling.ExpectedAmountFor(c.Kind)
		if !c.BilledAmount.Equals(expected) {
			chargeID := c.ID
			found = append(found, domainBilling.Discrepancy{
				Kind:           domainBilling.DiscrepancyAmountMismatch,
				AccountID:      accountID,
				SessionID:      c.EvaluationSessionID,
				ChargeID:       &chargeID,
				ExpectedAmount: expected,
				ActualAmount:   c.BilledAmount,
			})
		}
	}

	for sessionID, sessionCharges := range bySession {
		session, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				found = append(found, s.orphanDiscrepancies(ctx, accountID, sessionCharges)...)
				continue
			}
			return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
		if !session.IsEvaluated() {
			// Charges against an unevaluated session cannot be diffed
			// against ground truth yet; the next run sees them again.
			continue
		}
		diff, err := s.diffSessionCharges(ctx, session, sessionCharges)
		if err != nil {
			return nil, err
		}
		found = append(found, diff...)
	}

	// Evaluated sessions with no charges at all
	unbilled, err := s.sessionRepo.FindEvaluatedUnbilled(ctx, 0, s.config.UnbilledScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled sessions: %w", err)
	}
	for _, session := range unbilled {
		if session.AccountID != accountID {
			continue
		}
		if _, charged := bySession[session.ID]; charged {
			continue
		}
		found = append(found, domainBilling.Discrepancy{
			Kind:        domainBilling.DiscrepancyMissingBaseFee,
			AccountID:   accountID,
			SessionID:   session.ID,
			EvaluatedAt: session.EvaluatedAt,
		})
	}
	return found, nil
}

// diffSessionCharges reports both directions of drift on one evaluated
// session: expected charges absent from the ledger, and question charges the
// session's answers do not account for.
func (s *ReconciliationService) diffSessionCharges(ctx context.Context, session *evaluation.Session, charges []*domainBilling.Charge) ([]domainBilling.Discrepancy, error) {
	var found []domainBilling.Discrepancy

	var hasBaseFee bool
	chargedAnswers := make(map[uuid.UUID]bool)
	var questionCharges []*domainBilling.Charge
	for _, c := range charges {
		switch c.Kind {
		case domainBilling.ChargeKindBaseFeePerCandidate:
			hasBaseFee = true
		case domainBilling.ChargeKindPerQuestionAnalysis:
			if c.QuestionAnswerID != nil {
				chargedAnswers[*c.QuestionAnswerID] = true
			}
			questionCharges = append(questionCharges, c)
		}
	}

	if !hasBaseFee {
		found = append(found, domainBilling.Discrepancy{
			Kind:        domainBilling.DiscrepancyMissingBaseFee,
			AccountID:   session.AccountID,
			SessionID:   session.ID,
			EvaluatedAt: session.EvaluatedAt,
		})
	}

	answers, err := s.sessionRepo.AnswersForSession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers for session %s: %w", session.ID, err)
	}
	answerIDs := make(map[uuid.UUID]bool, len(answers))
	for _, answer := range answers {
		answerIDs[answer.ID] = true
		if chargedAnswers[answer.ID] {
			continue
		}
		answerID := answer.ID
		found = append(found, domainBilling.Discrepancy{
			Kind:             domainBilling.DiscrepancyMissingQuestionCharge,
			AccountID:        session.AccountID,
			SessionID:        session.ID,
			QuestionAnswerID: &answerID,
			EvaluatedAt:      session.EvaluatedAt,
		})
	}

	// Question charges with no answer reference, or referencing an answer
	// that belongs to another session, are money the ground truth cannot
	// account for. The answer-level uniqueness constraint rules out plain
	// duplicates, so these are the only surplus shapes left.
	for _, c := range questionCharges {
		if c.QuestionAnswerID != nil && answerIDs[*c.QuestionAnswerID] {
			continue
		}
		chargeID := c.ID
		found = append(found, domainBilling.Discrepancy{
			Kind:             domainBilling.DiscrepancySurplusQuestionCharge,
			AccountID:        session.AccountID,
			SessionID:        session.ID,
			ChargeID:         &chargeID,
			QuestionAnswerID: c.QuestionAnswerID,
			ActualAmount:     c.BilledAmount,
			EvaluatedAt:      session.EvaluatedAt,
		})
	}
	return found, nil
}

// orphanDiscrepancies builds one discrepancy per charge referencing a session
// that no longer exists, attempting to associate each with a session of the
// same account evaluated within the match window.
func (s *ReconciliationService) orphanDiscrepancies(ctx context.Context, accountID uuid.UUID, charges []*domainBilling.Charge) []domainBilling.Discrepancy {
	var found []domainBilling.Discrepancy
	for _, c := range charges {
		chargeID := c.ID
		d := domainBilling.Discrepancy{
			Kind:         domainBilling.DiscrepancyOrphanCharge,
			AccountID:    accountID,
			SessionID:    c.EvaluationSessionID,
			ChargeID:     &chargeID,
			ActualAmount: c.BilledAmount,
		}

		nearby, err := s.sessionRepo.FindEvaluatedNear(ctx, accountID, c.CreatedAt, s.config.OrphanMatchWindow)
		if err != nil {
			s.logger.Warn("Orphan association lookup failed",
				zap.String("charge_id", chargeID.String()), zap.Error(err))
		} else if len(nearby) == 1 {
			// Only an unambiguous match is trusted; several candidates
			// within the window need a human decision.
			associated := nearby[0].ID
			d.AssociatedSessionID = &associated
		}
		found = append(found, d)
	}
	return found
}

// repair fixes one correctable discrepancy. Missing charges are backfilled
// through the live charging flow, which attributes them to the session's
// evaluation month. Ledger rows are never rewritten: repairing a matched
// orphan means completing the matched session's own charges, while the
// orphan row keeps its dead session reference and stays on the ledger.
func (s *ReconciliationService) repair(ctx context.Context, d *domainBilling.Discrepancy, repairedSessions map[uuid.UUID]bool) error {
	switch d.Kind {
	case domainBilling.DiscrepancyMissingBaseFee, domainBilling.DiscrepancyMissingQuestionCharge:
		if repairedSessions[d.SessionID] {
			return nil
		}
		if _, err := s.charges.ChargeForEvaluationSession(ctx, d.SessionID); err != nil {
			return err
		}
		repairedSessions[d.SessionID] = true
		s.logger.Info("Backfilled missing charges",
			zap.String("account_id", d.AccountID.String()),
			zap.String("session_id", d.SessionID.String()))
		return nil

	case domainBilling.DiscrepancyOrphanCharge:
		if d.ChargeID == nil || d.AssociatedSessionID == nil {
			return errors.New("orphan charge has no associated session")
		}
		sessionID := *d.AssociatedSessionID
		if repairedSessions[sessionID] {
			return nil
		}
		result, err := s.charges.ChargeForEvaluationSession(ctx, sessionID)
		if err != nil {
			return err
		}
		repairedSessions[sessionID] = true
		if !result.BaseFeeCharged && result.QuestionCharges == 0 {
			// The matched session is already fully billed, so the orphan is
			// a row nothing accounts for; it needs a human decision.
			return errors.New("matched session is already fully billed, nothing to backfill")
		}
		s.logger.Info("Backfilled matched session of orphan charge",
			zap.String("charge_id", d.ChargeID.String()),
			zap.String("session_id", sessionID.String()))
		return nil

	default:
		return fmt.Errorf("no repair path for discrepancy kind %s", d.Kind)
	}
}

// escalate files one support ticket covering the account's uncorrectable
// discrepancies and publishes the escalation events. Returns true when the
// ticket was created. Escalation failures never fail the run; the next pass
// finds the same discrepancies and tries again.
func (s *ReconciliationService) escalate(ctx context.Context, accountID uuid.UUID, discrepancies []domainBilling.Discrepancy) bool {
	for i := range discrepancies {
		event := domainBilling.NewDiscrepancyEscalatedEvent(accountID, &discrepancies[i])
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish escalation event",
				zap.String("account_id", accountID.String()), zap.Error(err))
		}
	}

	ticket := domainBilling.SupportTicket{
		AccountID:     accountID,
		Subject:       fmt.Sprintf("Billing reconciliation found %d uncorrectable discrepancies", len(discrepancies)),
		Description:   describeAll(discrepancies),
		Discrepancies: discrepancies,
		DetectedAt:    time.Now().UTC(),
	}
	ref, err := s.escalator.CreateTicket(ctx, ticket)
	if err != nil {
		s.logger.Error("Failed to create support ticket",
			zap.String("account_id", accountID.String()),
			zap.Int("discrepancies", len(discrepancies)),
			zap.Error(err))
		return false
	}

	s.logger.Info("Support ticket created",
		zap.String("account_id", accountID.String()),
		zap.String("ticket_ref", ref),
		zap.Int("discrepancies", len(discrepancies)))
	return true
}

func describeAll(discrepancies []domainBilling.Discrepancy) string {
	desc := ""
	for i := range discrepancies {
		if i > 0 {
			desc += "\n"
		}
		desc += discrepancies[i].Describe()
	}
	return desc
}
