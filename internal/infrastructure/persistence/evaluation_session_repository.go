package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/evaluation"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEvaluationSessionRepository implements evaluation.SessionRepository
// using GORM. The underlying tables are written by the evaluation pipeline;
// billing only ever reads them.
type GormEvaluationSessionRepository struct {
	db *gorm.DB
}

// NewGormEvaluationSessionRepository creates a new GormEvaluationSessionRepository
func NewGormEvaluationSessionRepository(db *gorm.DB) *GormEvaluationSessionRepository {
	return &GormEvaluationSessionRepository{db: db}
}

// FindByID retrieves a session by its ID
func (r *GormEvaluationSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*evaluation.Session, error) {
	var model models.EvaluationSessionModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEvaluated retrieves evaluated sessions paged by evaluation time
func (r *GormEvaluationSessionRepository) FindEvaluated(ctx context.Context, after time.Time, limit int) ([]*evaluation.Session, error) {
	var modelList []models.EvaluationSessionModel
	err := r.db.WithContext(ctx).
		Where("evaluated_at IS NOT NULL AND evaluated_at > ?", after).
		Order("evaluated_at ASC, id ASC").
		Limit(limit).
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return sessionsToDomain(modelList), nil
}

// FindEvaluatedUnbilled retrieves sessions whose evaluation completed at least
// the grace period ago but which carry no base fee charge yet. Sessions inside
// the grace period are assumed to still be in the synchronous charge path.
func (r *GormEvaluationSessionRepository) FindEvaluatedUnbilled(ctx context.Context, gracePeriod time.Duration, limit int) ([]*evaluation.Session, error) {
	cutoff := time.Now().UTC().Add(-gracePeriod)

	var modelList []models.EvaluationSessionModel
	err := r.db.WithContext(ctx).
		Where("evaluated_at IS NOT NULL AND evaluated_at <= ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM charges WHERE charges.evaluation_session_id = evaluation_sessions.id AND charges.kind = ?)",
			billing.ChargeKindBaseFeePerCandidate).
		Order("evaluated_at ASC").
		Limit(limit).
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return sessionsToDomain(modelList), nil
}

// FindEvaluatedNear retrieves sessions of an account evaluated within the
// window around the given instant. Reconciliation uses this to associate an
// orphan charge with the session it most plausibly belongs to.
func (r *GormEvaluationSessionRepository) FindEvaluatedNear(ctx context.Context, accountID uuid.UUID, around time.Time, window time.Duration) ([]*evaluation.Session, error) {
	from := around.Add(-window)
	to := around.Add(window)

	var modelList []models.EvaluationSessionModel
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND evaluated_at IS NOT NULL AND evaluated_at BETWEEN ? AND ?", accountID, from, to).
		Order("evaluated_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return sessionsToDomain(modelList), nil
}

// AnswersForSession retrieves the answered questions of a session
func (r *GormEvaluationSessionRepository) AnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]*evaluation.QuestionAnswer, error) {
	var modelList []models.QuestionAnswerModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}

	answers := make([]*evaluation.QuestionAnswer, len(modelList))
	for i := range modelList {
		answers[i] = modelList[i].ToDomain()
	}
	return answers, nil
}

func sessionsToDomain(modelList []models.EvaluationSessionModel) []*evaluation.Session {
	sessions := make([]*evaluation.Session, len(modelList))
	for i := range modelList {
		sessions[i] = modelList[i].ToDomain()
	}
	return sessions
}
