package billing

import (
	"context"
	"fmt"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdmissionService answers the pre-flight question "may this account start
// another costed operation" and drives the one-time usage threshold
// notifications. The balance behind both is derived from the ledger sum on
// every call, never read from a stored counter.
type AdmissionService struct {
	chargeRepo  domainBilling.ChargeRepository
	creditRepo  domainBilling.CreditGrantRepository
	markRepo    domainBilling.ThresholdMarkRepository
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	logger      *zap.Logger
	idemConfig  shared.IdempotencyConfig
}

// NewAdmissionService creates a new AdmissionService
func NewAdmissionService(
	chargeRepo domainBilling.ChargeRepository,
	creditRepo domainBilling.CreditGrantRepository,
	markRepo domainBilling.ThresholdMarkRepository,
	idempotency shared.IdempotencyStore,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	idemConfig shared.IdempotencyConfig,
) *AdmissionService {
	return &AdmissionService{
		chargeRepo:  chargeRepo,
		creditRepo:  creditRepo,
		markRepo:    markRepo,
		idempotency: idempotency,
		publisher:   publisher,
		logger:      logger,
		idemConfig:  idemConfig,
	}
}

// AuthorizeCostedOperation decides whether the account may start another
// costed operation. Denials carry the UPGRADE_REQUIRED reason code; the
// transport layer maps it to its payment-required status.
func (s *AdmissionService) AuthorizeCostedOperation(ctx context.Context, accountID uuid.UUID) (*domainBilling.AdmissionDecision, error) {
	ceiling, totalBilled, err := s.accountStanding(ctx, accountID)
	if err != nil {
		return nil, err
	}

	decision := domainBilling.Admit(ceiling, totalBilled)
	s.logger.Debug("Admission check",
		zap.String("account_id", accountID.String()),
		zap.Bool("allowed", decision.Allowed),
		zap.String("balance", decision.Balance.String()),
		zap.String("ceiling", ceiling.String()))
	return &decision, nil
}

// CheckUsageThresholds publishes the notification event for every threshold
// the account has newly crossed and returns those thresholds. The durable
// marks are the authority on what counts as new; the idempotency store only
// short-circuits repeat checks within its TTL.
func (s *AdmissionService) CheckUsageThresholds(ctx context.Context, accountID uuid.UUID) ([]domainBilling.UsageThreshold, error) {
	ceiling, totalBilled, err := s.accountStanding(ctx, accountID)
	if err != nil {
		return nil, err
	}

	crossed := domainBilling.CrossedThresholds(totalBilled, ceiling)
	if len(crossed) == 0 {
		return nil, nil
	}

	var notified []domainBilling.UsageThreshold
	for _, threshold := range crossed {
		key := thresholdKey(accountID, threshold)

		processed, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency store lookup failed, falling back to durable marks",
				zap.String("key", key), zap.Error(err))
		} else if processed {
			continue
		}

		mark, err := domainBilling.NewThresholdMark(accountID, threshold)
		if err != nil {
			return notified, err
		}
		inserted, err := s.markRepo.InsertIgnoreDuplicate(ctx, mark)
		if err != nil {
			return notified, fmt.Errorf("failed to record threshold mark: %w", err)
		}

		if inserted {
			event := domainBilling.NewThresholdCrossedEvent(accountID, threshold, totalBilled, ceiling)
			if err := s.publisher.Publish(ctx, event); err != nil {
				s.logger.Warn("Failed to publish threshold event",
					zap.String("account_id", accountID.String()),
					zap.Int("threshold", int(threshold)),
					zap.Error(err))
			} else {
				s.logger.Info("Usage threshold crossed",
					zap.String("account_id", accountID.String()),
					zap.Int("threshold", int(threshold)),
					zap.String("total_billed", totalBilled.String()),
					zap.String("ceiling", ceiling.String()))
			}
			notified = append(notified, threshold)
		}

		if _, err := s.idempotency.MarkProcessed(ctx, key, s.idemConfig.TTL); err != nil {
			s.logger.Warn("Failed to cache threshold mark",
				zap.String("key", key), zap.Error(err))
		}
	}
	return notified, nil
}

// ResetThresholdMarks clears the account's durable marks so the notifications
// can fire again, e.g. after a credit grant. Cached idempotency entries keep
// suppressing re-notification until their TTL lapses.
func (s *AdmissionService) ResetThresholdMarks(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if accountID == uuid.Nil {
		return 0, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}

	deleted, err := s.markRepo.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset threshold marks: %w", err)
	}

	s.logger.Info("Threshold marks reset",
		zap.String("account_id", accountID.String()),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

// GrantExtraCredit replaces the account's extra-credit grant, raising (or
// lowering) its ceiling for subsequent admission checks.
func (s *AdmissionService) GrantExtraCredit(ctx context.Context, grant *domainBilling.CreditGrant) error {
	if err := s.creditRepo.Upsert(ctx, grant); err != nil {
		return fmt.Errorf("failed to store credit grant: %w", err)
	}
	s.logger.Info("Extra credit granted",
		zap.String("account_id", grant.AccountID.String()),
		zap.String("extra_credit", grant.ExtraCredit.String()),
		zap.String("granted_by", grant.GrantedBy))
	return nil
}

// accountStanding derives the account's ceiling and cumulative billed total
func (s *AdmissionService) accountStanding(ctx context.Context, accountID uuid.UUID) (ceiling, totalBilled valueobject.Money, err error) {
	if accountID == uuid.Nil {
		err = shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
		return
	}

	extra, err := s.creditRepo.ExtraCreditFor(ctx, accountID)
	if err != nil {
		err = fmt.Errorf("failed to load extra credit: %w", err)
		return
	}
	ceiling = domainBilling.CreditCeiling(extra)

	totalBilled, err = s.chargeRepo.SumBilledByAccount(ctx, accountID)
	if err != nil {
		err = fmt.Errorf("failed to sum billed amount: %w", err)
		return
	}
	return
}

func thresholdKey(accountID uuid.UUID, threshold domainBilling.UsageThreshold) string {
	return fmt.Sprintf("threshold:%s:%d", accountID, threshold)
}
