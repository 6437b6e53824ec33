package persistence

import (
	"context"
	"errors"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormChargeRepository implements billing.ChargeRepository using GORM
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction
func (r *GormChargeRepository) WithTx(tx *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: tx}
}

// InsertIgnoreDuplicate inserts a charge, skipping rows that violate the ledger
// uniqueness constraints. The ON CONFLICT DO NOTHING covers both the base-fee
// and the question-answer constraint, making double-charging impossible at the
// storage level regardless of concurrent writers.
func (r *GormChargeRepository) InsertIgnoreDuplicate(ctx context.Context, charge *billing.Charge) (bool, error) {
	model := &models.ChargeModel{}
	model.FromDomain(charge)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByID retrieves a charge by its ID
func (r *GormChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Charge, error) {
	var model models.ChargeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySessionAndKind retrieves the charge for (session, kind). For
// PER_QUESTION_ANALYSIS the question answer ID narrows the lookup.
func (r *GormChargeRepository) FindBySessionAndKind(ctx context.Context, sessionID uuid.UUID, kind billing.ChargeKind, questionAnswerID *uuid.UUID) (*billing.Charge, error) {
	query := r.db.WithContext(ctx).
		Where("evaluation_session_id = ? AND kind = ?", sessionID, kind)
	if questionAnswerID != nil {
		query = query.Where("question_answer_id = ?", *questionAnswerID)
	}

	var model models.ChargeModel
	err := query.First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySession retrieves all charges attributed to a session
func (r *GormChargeRepository) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]*billing.Charge, error) {
	var modelList []models.ChargeModel
	err := r.db.WithContext(ctx).
		Where("evaluation_session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return chargesToDomain(modelList), nil
}

// FindByInvoice retrieves all charges attached to an invoice
func (r *GormChargeRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Charge, error) {
	var modelList []models.ChargeModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return chargesToDomain(modelList), nil
}

// FindByAccount retrieves all charges of an account, oldest first
func (r *GormChargeRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.Charge, error) {
	var modelList []models.ChargeModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return chargesToDomain(modelList), nil
}

// SumBilledByAccount returns SUM(billed_amount) over the account's charges.
// Every derived balance starts from this sum; it is never cached.
func (r *GormChargeRepository) SumBilledByAccount(ctx context.Context, accountID uuid.UUID) (valueobject.Money, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(billed_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return valueobject.ZeroBRL(), err
	}
	return valueobject.NewMoneyBRL(total), nil
}

// invoiceAggregateRow is the scan target for AggregateForInvoice
type invoiceAggregateRow struct {
	TotalBilled    decimal.Decimal
	SessionCount   int64
	QuestionCount  int64
	CandidateCount int64
}

// AggregateForInvoice recomputes invoice totals as a full sum over the
// invoice's current charges. Totals are replaced wholesale, never incremented.
func (r *GormChargeRepository) AggregateForInvoice(ctx context.Context, invoiceID uuid.UUID) (billing.InvoiceTotals, error) {
	var row invoiceAggregateRow
	err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Where("invoice_id = ?", invoiceID).
		Select(
			"COALESCE(SUM(billed_amount), 0) AS total_billed, "+
				"COUNT(DISTINCT evaluation_session_id) AS session_count, "+
				"COUNT(CASE WHEN kind = ? THEN 1 END) AS question_count, "+
				"COUNT(CASE WHEN kind = ? THEN 1 END) AS candidate_count",
			billing.ChargeKindPerQuestionAnalysis,
			billing.ChargeKindBaseFeePerCandidate,
		).
		Scan(&row).Error
	if err != nil {
		return billing.ZeroInvoiceTotals(), err
	}
	return billing.InvoiceTotals{
		TotalBilled:    valueobject.NewMoneyBRL(row.TotalBilled),
		SessionCount:   row.SessionCount,
		QuestionCount:  row.QuestionCount,
		CandidateCount: row.CandidateCount,
	}, nil
}

// ListAccountIDs returns the distinct account IDs present in the ledger
func (r *GormChargeRepository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ChargeModel{}).
		Distinct("account_id").
		Order("account_id").
		Pluck("account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func chargesToDomain(modelList []models.ChargeModel) []*billing.Charge {
	charges := make([]*billing.Charge, len(modelList))
	for i := range modelList {
		charges[i] = modelList[i].ToDomain()
	}
	return charges
}
