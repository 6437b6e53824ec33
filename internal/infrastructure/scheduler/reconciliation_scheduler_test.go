package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appbilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/application/billing"
	domainBilling "github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/billing"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/infrastructure/persistence/models"
)

type nopEscalator struct{}

func (nopEscalator) CreateTicket(ctx context.Context, ticket domainBilling.SupportTicket) (string, error) {
	return "TICKET-1", nil
}

func newReconciliationScheduler(t *testing.T, config ReconciliationSchedulerConfig) *ReconciliationScheduler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ChargeModel{},
		&models.InvoiceModel{},
		&models.CreditGrantModel{},
		&models.EvaluationSessionModel{},
		&models.QuestionAnswerModel{},
	)
	require.NoError(t, err)

	logger := zap.NewNop()
	database := &persistence.Database{DB: db}
	chargeRepo := persistence.NewGormChargeRepository(db)
	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	creditRepo := persistence.NewGormCreditGrantRepository(db)
	sessionRepo := persistence.NewGormEvaluationSessionRepository(db)

	chargeService := appbilling.NewChargeService(
		database, chargeRepo, invoiceRepo, sessionRepo, creditRepo, nopPublisher{}, logger)
	invoiceService := appbilling.NewInvoiceService(
		database, chargeRepo, invoiceRepo, logger,
		appbilling.InvoiceServiceConfig{DueInterval: 10 * 24 * time.Hour})
	reconciliationService := appbilling.NewReconciliationService(
		chargeRepo, sessionRepo, chargeService, nil, nopEscalator{}, nopPublisher{}, logger,
		appbilling.DefaultReconciliationConfig())

	return NewReconciliationScheduler(reconciliationService, invoiceService, zap.NewNop(), config)
}

func TestReconciliationScheduler_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled scheduler does not start", func(t *testing.T) {
		s := newReconciliationScheduler(t, ReconciliationSchedulerConfig{Enabled: false})

		require.NoError(t, s.Start(ctx))
		require.NoError(t, s.Stop(ctx))
	})

	t.Run("start is idempotent and stop is graceful", func(t *testing.T) {
		s := newReconciliationScheduler(t, ReconciliationSchedulerConfig{
			Enabled:            true,
			ReconciliationHour: 3,
			OverdueCheckHour:   4,
			JobTimeout:         time.Minute,
		})

		require.NoError(t, s.Start(ctx))
		require.NoError(t, s.Start(ctx))

		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, s.Stop(stopCtx))
		require.NoError(t, s.Stop(stopCtx))
	})
}

func TestDefaultSchedulerConfigs(t *testing.T) {
	sweep := DefaultSweepSchedulerConfig()
	require.True(t, sweep.Enabled)
	require.Equal(t, 5*time.Minute, sweep.Interval)

	recon := DefaultReconciliationSchedulerConfig()
	require.True(t, recon.Enabled)
	require.Equal(t, 3, recon.ReconciliationHour)
	require.Equal(t, 4, recon.OverdueCheckHour)
}
