package models

import (
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/evaluation"
	"github.com/google/uuid"
)

// EvaluationSessionModel is the persistence model for evaluation sessions.
// The evaluation pipeline owns these rows; billing only reads them.
type EvaluationSessionModel struct {
	BaseModel
	AccountID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	CandidateID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	InterviewID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	EvaluatedAt           *time.Time `gorm:"index"`
	AnsweredQuestionCount int        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (EvaluationSessionModel) TableName() string {
	return "evaluation_sessions"
}

// ToDomain converts the persistence model to a domain Session
func (m *EvaluationSessionModel) ToDomain() *evaluation.Session {
	return &evaluation.Session{
		BaseEntity:            m.BaseModel.ToDomain(),
		AccountID:             m.AccountID,
		CandidateID:           m.CandidateID,
		InterviewID:           m.InterviewID,
		EvaluatedAt:           m.EvaluatedAt,
		AnsweredQuestionCount: m.AnsweredQuestionCount,
	}
}

// FromDomain populates the persistence model from a domain Session
func (m *EvaluationSessionModel) FromDomain(s *evaluation.Session) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.AccountID = s.AccountID
	m.CandidateID = s.CandidateID
	m.InterviewID = s.InterviewID
	m.EvaluatedAt = s.EvaluatedAt
	m.AnsweredQuestionCount = s.AnsweredQuestionCount
}

// QuestionAnswerModel is the persistence model for answered questions
type QuestionAnswerModel struct {
	BaseModel
	SessionID        uuid.UUID `gorm:"type:uuid;not null;index"`
	QuestionID       uuid.UUID `gorm:"type:uuid;not null"`
	InputTokenCount  int64     `gorm:"not null;default:0"`
	OutputTokenCount int64     `gorm:"not null;default:0"`
	DurationSeconds  int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (QuestionAnswerModel) TableName() string {
	return "question_answers"
}

// ToDomain converts the persistence model to a domain QuestionAnswer
func (m *QuestionAnswerModel) ToDomain() *evaluation.QuestionAnswer {
	return &evaluation.QuestionAnswer{
		BaseEntity:       m.BaseModel.ToDomain(),
		SessionID:        m.SessionID,
		QuestionID:       m.QuestionID,
		InputTokenCount:  m.InputTokenCount,
		OutputTokenCount: m.OutputTokenCount,
		DurationSeconds:  m.DurationSeconds,
	}
}

// FromDomain populates the persistence model from a domain QuestionAnswer
func (m *QuestionAnswerModel) FromDomain(qa *evaluation.QuestionAnswer) {
	m.FromDomainBaseEntity(qa.BaseEntity)
	m.SessionID = qa.SessionID
	m.QuestionID = qa.QuestionID
	m.InputTokenCount = qa.InputTokenCount
	m.OutputTokenCount = qa.OutputTokenCount
	m.DurationSeconds = qa.DurationSeconds
}
