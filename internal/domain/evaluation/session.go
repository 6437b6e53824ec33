// Package evaluation exposes a read-only view of the evaluation bounded
// context: sessions and question answers owned by the AI-analysis collaborator.
// The billing core only reads them; they are the ground truth reconciliation
// diffs the ledger against.
package evaluation

import (
	"context"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/google/uuid"
)

// Session is one candidate completing and being scored for one interview.
// EvaluatedAt is set exactly once, by the AI-analysis collaborator, when the
// evaluation completes.
type Session struct {
	shared.BaseEntity
	AccountID             uuid.UUID
	CandidateID           uuid.UUID
	InterviewID           uuid.UUID
	EvaluatedAt           *time.Time
	AnsweredQuestionCount int
}

// IsEvaluated returns true once the AI evaluation has completed
func (s *Session) IsEvaluated() bool {
	return s.EvaluatedAt != nil
}

// QuestionAnswer is one answered question of a session
type QuestionAnswer struct {
	shared.BaseEntity
	SessionID        uuid.UUID
	QuestionID       uuid.UUID
	InputTokenCount  int64
	OutputTokenCount int64
	DurationSeconds  int64
}

// SessionRepository reads the externally-owned evaluation data
type SessionRepository interface {
	// FindByID retrieves a session by its ID, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// FindEvaluated retrieves evaluated sessions in batches, paging by
	// (evaluated_at, id) after the given cursor time
	FindEvaluated(ctx context.Context, after time.Time, limit int) ([]*Session, error)

	// FindEvaluatedUnbilled retrieves sessions whose evaluation completed at
	// least the grace period ago but which have no base fee charge yet.
	// The fallback sweep feeds on this; limit bounds transaction length.
	FindEvaluatedUnbilled(ctx context.Context, gracePeriod time.Duration, limit int) ([]*Session, error)

	// FindEvaluatedNear retrieves sessions of an account evaluated within
	// the window around the given instant, used to associate orphan charges
	FindEvaluatedNear(ctx context.Context, accountID uuid.UUID, around time.Time, window time.Duration) ([]*Session, error)

	// AnswersForSession retrieves the answered questions of a session
	AnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]*QuestionAnswer, error)
}
