package billing

import (
	"fmt"
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// DiscrepancyKind identifies a drift pattern between the evaluation ground
// truth and the charge ledger.
type DiscrepancyKind string

const (
	// DiscrepancyMissingBaseFee: an evaluated session has no base fee charge
	DiscrepancyMissingBaseFee DiscrepancyKind = "MISSING_BASE_FEE"
	// DiscrepancyMissingQuestionCharge: an answered question has no analysis charge
	DiscrepancyMissingQuestionCharge DiscrepancyKind = "MISSING_QUESTION_CHARGE"
	// DiscrepancyOrphanCharge: a charge references a session that does not exist
	DiscrepancyOrphanCharge DiscrepancyKind = "ORPHAN_CHARGE"
	// DiscrepancySurplusQuestionCharge: a session carries an analysis charge
	// none of its answers accounts for
	DiscrepancySurplusQuestionCharge DiscrepancyKind = "SURPLUS_QUESTION_CHARGE"
	// DiscrepancyAmountMismatch: a charge amount differs from the pricing constants
	DiscrepancyAmountMismatch DiscrepancyKind = "AMOUNT_MISMATCH"
)

// IsValid checks if the discrepancy kind is valid
func (k DiscrepancyKind) IsValid() bool {
	switch k {
	case DiscrepancyMissingBaseFee, DiscrepancyMissingQuestionCharge,
		DiscrepancyOrphanCharge, DiscrepancySurplusQuestionCharge,
		DiscrepancyAmountMismatch:
		return true
	}
	return false
}

// Classification says whether a discrepancy can be auto-repaired
type Classification string

const (
	ClassificationCorrectable   Classification = "CORRECTABLE"
	ClassificationUncorrectable Classification = "UNCORRECTABLE"
)

// Discrepancy is one difference found by diffing expected charges (derived
// from evaluation ground truth) against the actual ledger.
type Discrepancy struct {
	Kind             DiscrepancyKind
	AccountID        uuid.UUID
	SessionID        uuid.UUID  // the session the expectation came from, if any
	ChargeID         *uuid.UUID // the offending charge, for orphans and mismatches
	QuestionAnswerID *uuid.UUID
	ExpectedAmount   valueobject.Money
	ActualAmount     valueobject.Money
	EvaluatedAt      *time.Time // original evaluation time, drives invoice attribution of repairs

	// AssociatedSessionID is set when an orphan charge could be matched to a
	// session evaluated within the association window.
	AssociatedSessionID *uuid.UUID

	Classification Classification
	Detail         string
}

// Describe returns a human-readable one-liner for tickets and logs
func (d *Discrepancy) Describe() string {
	switch d.Kind {
	case DiscrepancyMissingBaseFee:
		return fmt.Sprintf("session %s evaluated but missing its base fee charge", d.SessionID)
	case DiscrepancyMissingQuestionCharge:
		return fmt.Sprintf("session %s missing analysis charge for answer %s", d.SessionID, d.QuestionAnswerID)
	case DiscrepancyOrphanCharge:
		if d.AssociatedSessionID != nil {
			return fmt.Sprintf("charge %s references unknown session, matched session %s within window", d.ChargeID, d.AssociatedSessionID)
		}
		return fmt.Sprintf("charge %s references unknown session with no nearby match", d.ChargeID)
	case DiscrepancySurplusQuestionCharge:
		if d.QuestionAnswerID == nil {
			return fmt.Sprintf("charge %s on session %s carries no answer reference", d.ChargeID, d.SessionID)
		}
		return fmt.Sprintf("charge %s references answer %s which does not belong to session %s", d.ChargeID, d.QuestionAnswerID, d.SessionID)
	case DiscrepancyAmountMismatch:
		return fmt.Sprintf("charge %s billed %s, pricing constant expects %s", d.ChargeID, d.ActualAmount, d.ExpectedAmount)
	default:
		return fmt.Sprintf("unknown discrepancy %s on session %s", d.Kind, d.SessionID)
	}
}

// ClassifierRule classifies one family of discrepancies. New drift patterns
// are handled by adding a rule, not a new repair script.
type ClassifierRule interface {
	// Name identifies the rule in logs
	Name() string
	// Applies reports whether this rule handles the discrepancy
	Applies(d *Discrepancy) bool
	// Classify decides whether the discrepancy is auto-repairable
	Classify(d *Discrepancy) Classification
}

// MissingChargeRule marks missing base fee and question charges correctable:
// the ground truth fully determines the backfill.
type MissingChargeRule struct{}

func (MissingChargeRule) Name() string { return "missing_charge" }

func (MissingChargeRule) Applies(d *Discrepancy) bool {
	return d.Kind == DiscrepancyMissingBaseFee || d.Kind == DiscrepancyMissingQuestionCharge
}

func (MissingChargeRule) Classify(*Discrepancy) Classification {
	return ClassificationCorrectable
}

// OrphanChargeRule marks orphan charges correctable only when a session was
// matched within the association window. Unmatched orphans represent money
// already billed and are never auto-deleted, only escalated.
type OrphanChargeRule struct{}

func (OrphanChargeRule) Name() string { return "orphan_charge" }

func (OrphanChargeRule) Applies(d *Discrepancy) bool {
	return d.Kind == DiscrepancyOrphanCharge
}

func (OrphanChargeRule) Classify(d *Discrepancy) Classification {
	if d.AssociatedSessionID != nil {
		return ClassificationCorrectable
	}
	return ClassificationUncorrectable
}

// SurplusChargeRule never auto-repairs surplus question charges: the money is
// already billed and charges are never deleted, so the surplus escalates.
type SurplusChargeRule struct{}

func (SurplusChargeRule) Name() string { return "surplus_charge" }

func (SurplusChargeRule) Applies(d *Discrepancy) bool {
	return d.Kind == DiscrepancySurplusQuestionCharge
}

func (SurplusChargeRule) Classify(*Discrepancy) Classification {
	return ClassificationUncorrectable
}

// AmountMismatchRule never auto-repairs historical pricing mismatches; whether
// the charge or the constant was wrong needs a human decision.
type AmountMismatchRule struct{}

func (AmountMismatchRule) Name() string { return "amount_mismatch" }

func (AmountMismatchRule) Applies(d *Discrepancy) bool {
	return d.Kind == DiscrepancyAmountMismatch
}

func (AmountMismatchRule) Classify(*Discrepancy) Classification {
	return ClassificationUncorrectable
}

// Classifier applies an ordered rule set to discrepancies. Discrepancies no
// rule claims are uncorrectable so unrecognized drift always escalates.
type Classifier struct {
	rules []ClassifierRule
}

// NewClassifier creates a classifier with the given rules, or the default
// rule set when none are provided.
func NewClassifier(rules ...ClassifierRule) *Classifier {
	if len(rules) == 0 {
		rules = []ClassifierRule{
			MissingChargeRule{},
			OrphanChargeRule{},
			SurplusChargeRule{},
			AmountMismatchRule{},
		}
	}
	return &Classifier{rules: rules}
}

// Classify assigns a classification to the discrepancy in place and returns it
func (c *Classifier) Classify(d *Discrepancy) Classification {
	for _, rule := range c.rules {
		if rule.Applies(d) {
			d.Classification = rule.Classify(d)
			return d.Classification
		}
	}
	d.Classification = ClassificationUncorrectable
	return d.Classification
}
