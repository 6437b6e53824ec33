package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: tx}
}

// Save persists a new invoice. The (account_id, month, year) uniqueness
// constraint rejects a second invoice for the same account month; when two
// writers race to create the period invoice the loser gets INVOICE_EXISTS and
// re-reads the winner's row.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := &models.InvoiceModel{}
	model.FromDomain(invoice)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("INVOICE_EXISTS", "Invoice for this account and period already exists")
	}
	return nil
}

// Update persists invoice mutations
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	model := &models.InvoiceModel{}
	model.FromDomain(invoice)

	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"status":          model.Status,
			"total_billed":    model.TotalBilled,
			"total_paid":      model.TotalPaid,
			"session_count":   model.SessionCount,
			"question_count":  model.QuestionCount,
			"candidate_count": model.CandidateCount,
			"due_date":        model.DueDate,
			"closed_at":       model.ClosedAt,
			"paid_at":         model.PaidAt,
			"updated_at":      model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID retrieves an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccountAndPeriod retrieves the invoice for one account month
func (r *GormInvoiceRepository) FindByAccountAndPeriod(ctx context.Context, accountID uuid.UUID, period billing.ReferencePeriod) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND month = ? AND year = ?", accountID, int(period.Month), period.Year).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount retrieves all invoices of an account, newest period first
func (r *GormInvoiceRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.Invoice, error) {
	var modelList []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("year DESC, month DESC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return invoicesToDomain(modelList), nil
}

// FindOpenByPeriod retrieves all open invoices of a period, for month close
func (r *GormInvoiceRepository) FindOpenByPeriod(ctx context.Context, period billing.ReferencePeriod) ([]*billing.Invoice, error) {
	var modelList []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("month = ? AND year = ? AND status = ? AND closed_at IS NULL", int(period.Month), period.Year, billing.InvoiceStatusOpen).
		Order("account_id").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return invoicesToDomain(modelList), nil
}

// FindDueBefore retrieves open invoices whose due date passed
func (r *GormInvoiceRepository) FindDueBefore(ctx context.Context, asOf time.Time) ([]*billing.Invoice, error) {
	var modelList []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date <= ?", billing.InvoiceStatusOpen, asOf).
		Order("due_date ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return invoicesToDomain(modelList), nil
}

func invoicesToDomain(modelList []models.InvoiceModel) []*billing.Invoice {
	invoices := make([]*billing.Invoice, len(modelList))
	for i := range modelList {
		invoices[i] = modelList[i].ToDomain()
	}
	return invoices
}
