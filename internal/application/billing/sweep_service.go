package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/evaluation"
	"go.uber.org/zap"
)

// SweepServiceConfig contains configuration for SweepService
type SweepServiceConfig struct {
	// GracePeriod leaves freshly evaluated sessions to the synchronous path
	// before the sweep picks them up
	GracePeriod time.Duration

	// BatchSize bounds how many unbilled sessions one run processes
	BatchSize int
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	SessionsFound   int   `json:"sessions_found"`
	SessionsCharged int   `json:"sessions_charged"`
	Failures        int   `json:"failures"`
	DurationMs      int64 `json:"duration_ms"`
}

// SweepService is the fallback metering path: it finds evaluated sessions the
// synchronous charging hook missed and bills them through the same idempotent
// charge flow. Running it alongside the hook is safe; the ledger constraints
// make double billing impossible.
type SweepService struct {
	sessionRepo evaluation.SessionRepository
	charges     *ChargeService
	logger      *zap.Logger
	config      SweepServiceConfig
}

// NewSweepService creates a new SweepService
func NewSweepService(
	sessionRepo evaluation.SessionRepository,
	charges *ChargeService,
	logger *zap.Logger,
	config SweepServiceConfig,
) *SweepService {
	return &SweepService{
		sessionRepo: sessionRepo,
		charges:     charges,
		logger:      logger,
		config:      config,
	}
}

// Run processes one bounded batch of unbilled sessions. Per-session failures
// are counted and logged but never abort the batch; the next run retries them.
func (s *SweepService) Run(ctx context.Context) (*SweepResult, error) {
	start := time.Now()

	sessions, err := s.sessionRepo.FindEvaluatedUnbilled(ctx, s.config.GracePeriod, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled sessions: %w", err)
	}

	result := &SweepResult{SessionsFound: len(sessions)}
	for _, session := range sessions {
		if ctx.Err() != nil {
			break
		}

		if _, err := s.charges.ChargeForEvaluationSession(ctx, session.ID); err != nil {
			result.Failures++
			s.logger.Error("Sweep failed to charge session",
				zap.String("session_id", session.ID.String()),
				zap.String("account_id", session.AccountID.String()),
				zap.Error(err))
			continue
		}
		result.SessionsCharged++
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if result.SessionsFound > 0 {
		s.logger.Info("Billing sweep completed",
			zap.Int("sessions_found", result.SessionsFound),
			zap.Int("sessions_charged", result.SessionsCharged),
			zap.Int("failures", result.Failures),
			zap.Int64("duration_ms", result.DurationMs))
	}
	return result, nil
}
