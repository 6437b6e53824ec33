package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func insertTestSession(t *testing.T, db *gorm.DB, accountID uuid.UUID, evaluatedAt *time.Time, questionCount int) uuid.UUID {
	t.Helper()

	model := &models.EvaluationSessionModel{
		AccountID:             accountID,
		CandidateID:           uuid.New(),
		InterviewID:           uuid.New(),
		EvaluatedAt:           evaluatedAt,
		AnsweredQuestionCount: questionCount,
	}
	model.ID = uuid.New()
	model.CreatedAt = time.Now().UTC()
	model.UpdatedAt = model.CreatedAt
	require.NoError(t, db.Create(model).Error)
	return model.ID
}

func insertTestAnswer(t *testing.T, db *gorm.DB, sessionID uuid.UUID, inputTokens, outputTokens int64) uuid.UUID {
	t.Helper()

	model := &models.QuestionAnswerModel{
		SessionID:        sessionID,
		QuestionID:       uuid.New(),
		InputTokenCount:  inputTokens,
		OutputTokenCount: outputTokens,
		DurationSeconds:  90,
	}
	model.ID = uuid.New()
	model.CreatedAt = time.Now().UTC()
	model.UpdatedAt = model.CreatedAt
	require.NoError(t, db.Create(model).Error)
	return model.ID
}

func TestGormEvaluationSessionRepository_FindByID(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormEvaluationSessionRepository(db)
	ctx := context.Background()

	evaluatedAt := time.Now().UTC().Add(-time.Hour)
	sessionID := insertTestSession(t, db, uuid.New(), &evaluatedAt, 5)

	t.Run("finds an existing session", func(t *testing.T) {
		session, err := repo.FindByID(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, session.IsEvaluated())
		assert.Equal(t, 5, session.AnsweredQuestionCount)
	})

	t.Run("returns not found for unknown session", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormEvaluationSessionRepository_FindEvaluatedUnbilled(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormEvaluationSessionRepository(db)
	chargeRepo := NewGormChargeRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	gracePeriod := 15 * time.Minute

	longAgo := time.Now().UTC().Add(-2 * time.Hour)
	justNow := time.Now().UTC().Add(-time.Minute)

	unbilledOld := insertTestSession(t, db, accountID, &longAgo, 3)
	billedOld := insertTestSession(t, db, accountID, &longAgo, 3)
	insertTestSession(t, db, accountID, &justNow, 3) // inside grace period
	insertTestSession(t, db, accountID, nil, 0)      // not evaluated

	charge := newTestBaseFeeCharge(t, accountID, billedOld)
	_, err := chargeRepo.InsertIgnoreDuplicate(ctx, charge)
	require.NoError(t, err)

	sessions, err := repo.FindEvaluatedUnbilled(ctx, gracePeriod, 50)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, unbilledOld, sessions[0].ID)
}

func TestGormEvaluationSessionRepository_FindEvaluatedUnbilled_Limit(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormEvaluationSessionRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	for i := 0; i < 5; i++ {
		evaluatedAt := time.Now().UTC().Add(-time.Duration(i+1) * time.Hour)
		insertTestSession(t, db, accountID, &evaluatedAt, 2)
	}

	sessions, err := repo.FindEvaluatedUnbilled(ctx, 15*time.Minute, 3)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestGormEvaluationSessionRepository_FindEvaluatedNear(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormEvaluationSessionRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	anchor := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	nearBefore := anchor.Add(-6 * time.Hour)
	nearAfter := anchor.Add(6 * time.Hour)
	farAway := anchor.Add(-72 * time.Hour)

	inWindowA := insertTestSession(t, db, accountID, &nearBefore, 2)
	inWindowB := insertTestSession(t, db, accountID, &nearAfter, 2)
	insertTestSession(t, db, accountID, &farAway, 2)
	insertTestSession(t, db, uuid.New(), &nearBefore, 2) // other account

	sessions, err := repo.FindEvaluatedNear(ctx, accountID, anchor, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, inWindowA, sessions[0].ID)
	assert.Equal(t, inWindowB, sessions[1].ID)
}

func TestGormEvaluationSessionRepository_AnswersForSession(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewGormEvaluationSessionRepository(db)
	ctx := context.Background()

	evaluatedAt := time.Now().UTC().Add(-time.Hour)
	sessionID := insertTestSession(t, db, uuid.New(), &evaluatedAt, 2)

	insertTestAnswer(t, db, sessionID, 1200, 450)
	insertTestAnswer(t, db, sessionID, 800, 300)
	insertTestAnswer(t, db, uuid.New(), 999, 999) // other session

	answers, err := repo.AnswersForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, int64(1200), answers[0].InputTokenCount)
}
