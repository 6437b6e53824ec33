package persistence

import (
	"context"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormThresholdMarkRepository implements billing.ThresholdMarkRepository using GORM
type GormThresholdMarkRepository struct {
	db *gorm.DB
}

// NewGormThresholdMarkRepository creates a new GormThresholdMarkRepository
func NewGormThresholdMarkRepository(db *gorm.DB) *GormThresholdMarkRepository {
	return &GormThresholdMarkRepository{db: db}
}

// InsertIgnoreDuplicate records a mark, skipping rows that violate the
// (account_id, threshold) uniqueness constraint. The constraint is what makes
// the notification one-time across concurrent checks.
func (r *GormThresholdMarkRepository) InsertIgnoreDuplicate(ctx context.Context, mark *billing.ThresholdMark) (bool, error) {
	model := &models.ThresholdMarkModel{}
	model.FromDomain(mark)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByAccount retrieves all marks recorded for an account
func (r *GormThresholdMarkRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.ThresholdMark, error) {
	var modelList []models.ThresholdMarkModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("threshold ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}

	marks := make([]*billing.ThresholdMark, len(modelList))
	for i := range modelList {
		marks[i] = modelList[i].ToDomain()
	}
	return marks, nil
}

// DeleteByAccount clears an account's marks (operator reset)
func (r *GormThresholdMarkRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.ThresholdMarkModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
