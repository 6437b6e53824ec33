package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/application/billing"
	"go.uber.org/zap"
)

// ReconciliationSchedulerConfig holds configuration for the nightly billing
// maintenance jobs
type ReconciliationSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// ReconciliationHour is the hour (0-23, UTC) when the nightly ledger
	// reconciliation runs
	ReconciliationHour int

	// OverdueCheckHour is the hour (0-23, UTC) when open invoices past
	// their due date are marked overdue
	OverdueCheckHour int

	// JobTimeout is the maximum time for one job run
	JobTimeout time.Duration
}

// DefaultReconciliationSchedulerConfig returns default configuration
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:            true,
		ReconciliationHour: 3,
		OverdueCheckHour:   4,
		JobTimeout:         30 * time.Minute,
	}
}

// ReconciliationScheduler runs the nightly billing maintenance: the ledger
// reconciliation pass and the overdue invoice check, each once per day at its
// configured hour.
type ReconciliationScheduler struct {
	reconciliation *billing.ReconciliationService
	invoices       *billing.InvoiceService
	logger         *zap.Logger
	config         ReconciliationSchedulerConfig
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	mu             sync.Mutex
	isRunning      bool
}

// NewReconciliationScheduler creates a new reconciliation scheduler
func NewReconciliationScheduler(
	reconciliation *billing.ReconciliationService,
	invoices *billing.InvoiceService,
	logger *zap.Logger,
	config ReconciliationSchedulerConfig,
) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		reconciliation: reconciliation,
		invoices:       invoices,
		logger:         logger,
		config:         config,
	}
}

// Start starts the scheduler
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Reconciliation scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.runDaily(ctx, s.config.ReconciliationHour, "reconciliation", s.executeReconciliation)
	go s.runDaily(ctx, s.config.OverdueCheckHour, "overdue check", s.executeOverdueCheck)

	s.logger.Info("Reconciliation scheduler started",
		zap.Int("reconciliation_hour", s.config.ReconciliationHour),
		zap.Int("overdue_check_hour", s.config.OverdueCheckHour))
	return nil
}

// Stop gracefully stops the scheduler
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

// runDaily executes the job once per day at the given UTC hour
func (s *ReconciliationScheduler) runDaily(ctx context.Context, hour int, name string, job func(context.Context)) {
	defer s.wg.Done()

	for {
		now := time.Now().UTC()
		nextRun := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
		if now.After(nextRun) {
			nextRun = nextRun.Add(24 * time.Hour)
		}
		delay := time.Until(nextRun)

		s.logger.Info("Daily billing job scheduled",
			zap.String("job", name),
			zap.Time("next_run", nextRun),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			s.logger.Debug("Daily billing job loop stopping", zap.String("job", name))
			return
		case <-time.After(delay):
			job(ctx)
		}
	}
}

func (s *ReconciliationScheduler) executeReconciliation(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	report, err := s.reconciliation.Run(runCtx)
	if err != nil {
		s.logger.Error("Nightly reconciliation failed", zap.Error(err))
		return
	}

	s.logger.Info("Nightly reconciliation completed",
		zap.Bool("success", report.Success),
		zap.Int("accounts_checked", report.TotalAccountsChecked),
		zap.Int("discrepancies", report.TotalDiscrepancies),
		zap.Int("corrected", report.CorrectedCount),
		zap.Int("uncorrectable", report.UncorrectableCount),
		zap.Bool("ticket_created", report.TicketCreated))
}

func (s *ReconciliationScheduler) executeOverdueCheck(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	marked, err := s.invoices.MarkOverdueInvoices(runCtx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Overdue invoice check failed", zap.Error(err))
		return
	}

	if marked > 0 {
		s.logger.Info("Overdue invoice check completed", zap.Int("marked", marked))
	}
}
