package persistence

import (
	"context"
	"errors"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCreditGrantRepository implements billing.CreditGrantRepository using GORM
type GormCreditGrantRepository struct {
	db *gorm.DB
}

// NewGormCreditGrantRepository creates a new GormCreditGrantRepository
func NewGormCreditGrantRepository(db *gorm.DB) *GormCreditGrantRepository {
	return &GormCreditGrantRepository{db: db}
}

// Upsert creates or replaces the grant for an account
func (r *GormCreditGrantRepository) Upsert(ctx context.Context, grant *billing.CreditGrant) error {
	model := &models.CreditGrantModel{}
	model.FromDomain(grant)

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"extra_credit", "granted_by", "reason", "updated_at",
			}),
		}).
		Create(model).Error
}

// ExtraCreditFor returns the account's extra credit, zero when no grant exists
func (r *GormCreditGrantRepository) ExtraCreditFor(ctx context.Context, accountID uuid.UUID) (valueobject.Money, error) {
	var model models.CreditGrantModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return valueobject.ZeroBRL(), nil
		}
		return valueobject.ZeroBRL(), err
	}
	return valueobject.NewMoneyBRL(model.ExtraCredit), nil
}
