package persistence

import (
	"context"
	"testing"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCreditGrantRepository_Upsert(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormCreditGrantRepository(db)
	ctx := context.Background()

	accountID := uuid.New()

	t.Run("creates a new grant", func(t *testing.T) {
		grant, err := billing.NewCreditGrant(accountID,
			valueobject.NewMoneyBRL(decimal.NewFromFloat(25.00)), "ops@entrevistia", "pilot extension")
		require.NoError(t, err)

		require.NoError(t, repo.Upsert(ctx, grant))

		extra, err := repo.ExtraCreditFor(ctx, accountID)
		require.NoError(t, err)
		assert.True(t, extra.Amount().Equal(decimal.NewFromFloat(25.00)))
	})

	t.Run("replaces the existing grant for the account", func(t *testing.T) {
		grant, err := billing.NewCreditGrant(accountID,
			valueobject.NewMoneyBRL(decimal.NewFromFloat(100.00)), "ops@entrevistia", "plan upgrade")
		require.NoError(t, err)

		require.NoError(t, repo.Upsert(ctx, grant))

		extra, err := repo.ExtraCreditFor(ctx, accountID)
		require.NoError(t, err)
		assert.True(t, extra.Amount().Equal(decimal.NewFromFloat(100.00)))
	})
}

func TestGormCreditGrantRepository_ExtraCreditFor_NoGrant(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormCreditGrantRepository(db)

	extra, err := repo.ExtraCreditFor(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, extra.IsZero())
}
