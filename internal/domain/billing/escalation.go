package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SupportTicket is the payload handed to the human support pipeline when
// reconciliation finds discrepancies it cannot repair on its own.
type SupportTicket struct {
	AccountID     uuid.UUID
	Subject       string
	Description   string
	Discrepancies []Discrepancy
	DetectedAt    time.Time
}

// SupportEscalator files support tickets with the external ticketing system.
// Escalation must never repair anything; it only makes humans look.
type SupportEscalator interface {
	// CreateTicket files a ticket and returns its external reference
	CreateTicket(ctx context.Context, ticket SupportTicket) (string, error)
}
