package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/application/billing"
	"go.uber.org/zap"
)

// SweepSchedulerConfig holds configuration for the billing sweep scheduler
type SweepSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is how often the fallback sweep runs
	Interval time.Duration

	// JobTimeout is the maximum time for one sweep run
	JobTimeout time.Duration
}

// DefaultSweepSchedulerConfig returns default configuration
func DefaultSweepSchedulerConfig() SweepSchedulerConfig {
	return SweepSchedulerConfig{
		Enabled:    true,
		Interval:   5 * time.Minute,
		JobTimeout: 30 * time.Minute,
	}
}

// SweepScheduler periodically runs the fallback billing sweep that picks up
// evaluated sessions the synchronous charging hook missed.
type SweepScheduler struct {
	service   *billing.SweepService
	logger    *zap.Logger
	config    SweepSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweepScheduler creates a new sweep scheduler
func NewSweepScheduler(
	service *billing.SweepService,
	logger *zap.Logger,
	config SweepSchedulerConfig,
) *SweepScheduler {
	return &SweepScheduler{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the sweep scheduler
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Billing sweep scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Billing sweep scheduler started",
		zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop gracefully stops the scheduler
func (s *SweepScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Billing sweep scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing sweep scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *SweepScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweep loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

func (s *SweepScheduler) executeSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.service.Run(sweepCtx)
	if err != nil {
		s.logger.Error("Billing sweep run failed", zap.Error(err))
		return
	}

	if result.SessionsFound > 0 {
		s.logger.Info("Billing sweep run completed",
			zap.Int("sessions_found", result.SessionsFound),
			zap.Int("sessions_charged", result.SessionsCharged),
			zap.Int("failures", result.Failures),
			zap.Int64("duration_ms", result.DurationMs))
	}
}
