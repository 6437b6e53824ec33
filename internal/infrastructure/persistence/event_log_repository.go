package persistence

import (
	"context"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEventLogRepository implements shared.EventLog using GORM
type GormEventLogRepository struct {
	db *gorm.DB
}

// NewGormEventLogRepository creates a new GormEventLogRepository
func NewGormEventLogRepository(db *gorm.DB) *GormEventLogRepository {
	return &GormEventLogRepository{db: db}
}

// Append stores one event record. The event ID is the primary key, so a
// record delivered twice lands on the journal once.
func (r *GormEventLogRepository) Append(ctx context.Context, record shared.EventRecord) error {
	model := &models.BillingEventModel{}
	model.FromRecord(record)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
}

// FindByAccount returns the account's records, newest first
func (r *GormEventLogRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]shared.EventRecord, error) {
	var modelList []models.BillingEventModel
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("occurred_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&modelList).Error; err != nil {
		return nil, err
	}

	records := make([]shared.EventRecord, len(modelList))
	for i := range modelList {
		records[i] = modelList[i].ToRecord()
	}
	return records, nil
}

// Ensure GormEventLogRepository implements shared.EventLog
var _ shared.EventLog = (*GormEventLogRepository)(nil)
