package billing

import (
	"context"
	"testing"

	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdmissionService(t *testing.T, f *ledgerFixture) *AdmissionService {
	t.Helper()

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	return NewAdmissionService(
		f.charges, f.credits, f.marks, store,
		f.publisher, zap.NewNop(), shared.DefaultIdempotencyConfig(),
	)
}

// billSessions charges n sessions with questionCount answers each
func billSessions(t *testing.T, f *ledgerFixture, accountID uuid.UUID, n, questionCount int) {
	t.Helper()
	for i := 0; i < n; i++ {
		sessionID := f.seedEvaluatedSession(t, accountID, questionCount)
		_, err := f.service.ChargeForEvaluationSession(context.Background(), sessionID)
		require.NoError(t, err)
	}
}

func TestAdmissionService_AuthorizeCostedOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("allows a fresh account", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)

		decision, err := svc.AuthorizeCostedOperation(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.Balance.Amount().Equal(decimal.NewFromFloat(50.00)))
	})

	t.Run("allows while the derived balance is positive", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)
		accountID := uuid.New()

		// 14 candidates at 3.50 each leave 1.00 of the free tier
		billSessions(t, f, accountID, 14, 10)

		decision, err := svc.AuthorizeCostedOperation(ctx, accountID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.Balance.Amount().Equal(decimal.NewFromFloat(1.00)),
			"expected 1.00, got %s", decision.Balance.Amount())
	})

	t.Run("denies with upgrade reason once the ceiling is reached", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)
		accountID := uuid.New()

		// 10 candidates at 5.00 each exhaust the free tier exactly
		billSessions(t, f, accountID, 10, 16)

		decision, err := svc.AuthorizeCostedOperation(ctx, accountID)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, "UPGRADE_REQUIRED", decision.ReasonCode)
		assert.True(t, decision.Balance.IsZero())
	})

	t.Run("extra credit raises the ceiling", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)
		accountID := uuid.New()

		billSessions(t, f, accountID, 10, 16)

		grant, err := domainBilling.NewCreditGrant(accountID,
			valueobject.NewMoneyBRLFromFloat(25.00), "ops@entrevistia", "pilot extension")
		require.NoError(t, err)
		require.NoError(t, svc.GrantExtraCredit(ctx, grant))

		decision, err := svc.AuthorizeCostedOperation(ctx, accountID)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.Balance.Amount().Equal(decimal.NewFromFloat(25.00)))
		assert.True(t, decision.Ceiling.Amount().Equal(decimal.NewFromFloat(75.00)))
	})

	t.Run("rejects empty account ID", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)

		_, err := svc.AuthorizeCostedOperation(ctx, uuid.Nil)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ACCOUNT", domainErr.Code)
	})
}

func TestAdmissionService_CheckUsageThresholds(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies each crossed threshold exactly once", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)
		accountID := uuid.New()

		// 8 candidates at 3.50 each bill 28.00, 56% of the ceiling
		billSessions(t, f, accountID, 8, 10)

		notified, err := svc.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, []domainBilling.UsageThreshold{domainBilling.Threshold50}, notified)
		assert.Len(t, f.publisher.eventsOfType(domainBilling.EventTypeThresholdCrossed), 1)

		// A second check must stay silent
		notified, err = svc.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		assert.Empty(t, notified)
		assert.Len(t, f.publisher.eventsOfType(domainBilling.EventTypeThresholdCrossed), 1)
	})

	t.Run("catches up on several thresholds at once", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)
		accountID := uuid.New()

		// 13 candidates at 3.50 each bill 45.50, 91% of the ceiling
		billSessions(t, f, accountID, 13, 10)

		notified, err := svc.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, []domainBilling.UsageThreshold{
			domainBilling.Threshold50,
			domainBilling.Threshold75,
			domainBilling.Threshold90,
		}, notified)
	})

	t.Run("durable marks survive without the cache", func(t *testing.T) {
		f := newLedgerFixture(t)
		accountID := uuid.New()
		billSessions(t, f, accountID, 8, 10)

		first := newAdmissionService(t, f)
		notified, err := first.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, notified, 1)

		// A fresh service with an empty cache still must not re-notify
		second := newAdmissionService(t, f)
		notified, err = second.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		assert.Empty(t, notified)
	})

	t.Run("below every threshold nothing fires", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)
		accountID := uuid.New()

		billSessions(t, f, accountID, 2, 10)

		notified, err := svc.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		assert.Empty(t, notified)
	})
}

func TestAdmissionService_ResetThresholdMarks(t *testing.T) {
	ctx := context.Background()

	t.Run("clears marks so notifications can fire again", func(t *testing.T) {
		f := newLedgerFixture(t)
		accountID := uuid.New()
		billSessions(t, f, accountID, 8, 10)

		svc := newAdmissionService(t, f)
		notified, err := svc.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, notified, 1)

		deleted, err := svc.ResetThresholdMarks(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		// A fresh cache simulates the TTL lapsing after the reset
		fresh := newAdmissionService(t, f)
		notified, err = fresh.CheckUsageThresholds(ctx, accountID)
		require.NoError(t, err)
		assert.Len(t, notified, 1)
	})

	t.Run("rejects empty account ID", func(t *testing.T) {
		f := newLedgerFixture(t)
		svc := newAdmissionService(t, f)

		_, err := svc.ResetThresholdMarks(ctx, uuid.Nil)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ACCOUNT", domainErr.Code)
	})
}
