package persistence

import (
	"context"
	"testing"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormThresholdMarkRepository_InsertIgnoreDuplicate(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormThresholdMarkRepository(db)
	ctx := context.Background()

	accountID := uuid.New()

	t.Run("records a new mark", func(t *testing.T) {
		mark, err := billing.NewThresholdMark(accountID, billing.Threshold50)
		require.NoError(t, err)

		inserted, err := repo.InsertIgnoreDuplicate(ctx, mark)
		require.NoError(t, err)
		assert.True(t, inserted)
	})

	t.Run("skips a duplicate mark for the same threshold", func(t *testing.T) {
		mark, err := billing.NewThresholdMark(accountID, billing.Threshold50)
		require.NoError(t, err)

		inserted, err := repo.InsertIgnoreDuplicate(ctx, mark)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("records distinct thresholds independently", func(t *testing.T) {
		for _, th := range []billing.UsageThreshold{billing.Threshold75, billing.Threshold90, billing.Threshold100} {
			mark, err := billing.NewThresholdMark(accountID, th)
			require.NoError(t, err)

			inserted, err := repo.InsertIgnoreDuplicate(ctx, mark)
			require.NoError(t, err)
			assert.True(t, inserted)
		}

		marks, err := repo.FindByAccount(ctx, accountID)
		require.NoError(t, err)
		assert.Len(t, marks, 4)
	})
}

func TestGormThresholdMarkRepository_DeleteByAccount(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormThresholdMarkRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	otherAccount := uuid.New()

	for _, th := range []billing.UsageThreshold{billing.Threshold50, billing.Threshold75} {
		mark, err := billing.NewThresholdMark(accountID, th)
		require.NoError(t, err)
		_, err = repo.InsertIgnoreDuplicate(ctx, mark)
		require.NoError(t, err)
	}
	otherMark, err := billing.NewThresholdMark(otherAccount, billing.Threshold50)
	require.NoError(t, err)
	_, err = repo.InsertIgnoreDuplicate(ctx, otherMark)
	require.NoError(t, err)

	deleted, err := repo.DeleteByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	marks, err := repo.FindByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, marks)

	// The reset must not touch another account's marks
	otherMarks, err := repo.FindByAccount(ctx, otherAccount)
	require.NoError(t, err)
	assert.Len(t, otherMarks, 1)
}
