package billing

import (
	"testing"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestClassifierDefaults(t *testing.T) {
	c := NewClassifier()

	t.Run("missing base fee is correctable", func(t *testing.T) {
		d := &Discrepancy{Kind: DiscrepancyMissingBaseFee, SessionID: uuid.New()}
		assert.Equal(t, ClassificationCorrectable, c.Classify(d))
	})

	t.Run("missing question charge is correctable", func(t *testing.T) {
		answerID := uuid.New()
		d := &Discrepancy{Kind: DiscrepancyMissingQuestionCharge, SessionID: uuid.New(), QuestionAnswerID: &answerID}
		assert.Equal(t, ClassificationCorrectable, c.Classify(d))
	})

	t.Run("orphan with matched session is correctable", func(t *testing.T) {
		chargeID := uuid.New()
		matched := uuid.New()
		d := &Discrepancy{Kind: DiscrepancyOrphanCharge, ChargeID: &chargeID, AssociatedSessionID: &matched}
		assert.Equal(t, ClassificationCorrectable, c.Classify(d))
	})

	t.Run("orphan with no nearby session is uncorrectable", func(t *testing.T) {
		chargeID := uuid.New()
		d := &Discrepancy{Kind: DiscrepancyOrphanCharge, ChargeID: &chargeID}
		assert.Equal(t, ClassificationUncorrectable, c.Classify(d))
	})

	t.Run("surplus question charge is always uncorrectable", func(t *testing.T) {
		chargeID := uuid.New()
		answerID := uuid.New()
		d := &Discrepancy{
			Kind:             DiscrepancySurplusQuestionCharge,
			SessionID:        uuid.New(),
			ChargeID:         &chargeID,
			QuestionAnswerID: &answerID,
			ActualAmount:     valueobject.NewMoneyBRLFromFloat(0.25),
		}
		assert.Equal(t, ClassificationUncorrectable, c.Classify(d))
	})

	t.Run("amount mismatch is always uncorrectable", func(t *testing.T) {
		chargeID := uuid.New()
		d := &Discrepancy{
			Kind:           DiscrepancyAmountMismatch,
			ChargeID:       &chargeID,
			ExpectedAmount: valueobject.NewMoneyBRLFromFloat(0.25),
			ActualAmount:   valueobject.NewMoneyBRLFromFloat(0.10),
		}
		assert.Equal(t, ClassificationUncorrectable, c.Classify(d))
	})

	t.Run("unknown kinds escalate", func(t *testing.T) {
		d := &Discrepancy{Kind: DiscrepancyKind("NEW_DRIFT_PATTERN")}
		assert.Equal(t, ClassificationUncorrectable, c.Classify(d))
	})
}

func TestClassifierCustomRule(t *testing.T) {
	// A new drift pattern is handled by adding a rule, not a new script
	custom := classifierRuleFunc{
		name:    "negative_amount",
		applies: func(d *Discrepancy) bool { return d.ActualAmount.IsNegative() },
		classify: func(d *Discrepancy) Classification {
			return ClassificationUncorrectable
		},
	}

	c := NewClassifier(custom, MissingChargeRule{})

	d := &Discrepancy{Kind: DiscrepancyMissingBaseFee, ActualAmount: valueobject.NewMoneyBRLFromFloat(-1)}
	assert.Equal(t, ClassificationUncorrectable, c.Classify(d), "custom rule wins by order")

	d2 := &Discrepancy{Kind: DiscrepancyMissingBaseFee, ActualAmount: valueobject.ZeroBRL()}
	assert.Equal(t, ClassificationCorrectable, c.Classify(d2))
}

// classifierRuleFunc adapts closures to ClassifierRule for tests
type classifierRuleFunc struct {
	name     string
	applies  func(*Discrepancy) bool
	classify func(*Discrepancy) Classification
}

func (r classifierRuleFunc) Name() string                          { return r.name }
func (r classifierRuleFunc) Applies(d *Discrepancy) bool           { return r.applies(d) }
func (r classifierRuleFunc) Classify(d *Discrepancy) Classification { return r.classify(d) }

func TestDiscrepancyDescribe(t *testing.T) {
	chargeID := uuid.New()

	d := &Discrepancy{Kind: DiscrepancyMissingBaseFee, SessionID: uuid.New()}
	assert.Contains(t, d.Describe(), "missing its base fee")

	d = &Discrepancy{Kind: DiscrepancyOrphanCharge, ChargeID: &chargeID}
	assert.Contains(t, d.Describe(), "no nearby match")

	answerID := uuid.New()
	d = &Discrepancy{
		Kind:             DiscrepancySurplusQuestionCharge,
		SessionID:        uuid.New(),
		ChargeID:         &chargeID,
		QuestionAnswerID: &answerID,
	}
	assert.Contains(t, d.Describe(), "does not belong")

	d = &Discrepancy{Kind: DiscrepancySurplusQuestionCharge, SessionID: uuid.New(), ChargeID: &chargeID}
	assert.Contains(t, d.Describe(), "no answer reference")

	d = &Discrepancy{
		Kind:           DiscrepancyAmountMismatch,
		ChargeID:       &chargeID,
		ExpectedAmount: valueobject.NewMoneyBRLFromFloat(0.25),
		ActualAmount:   valueobject.NewMoneyBRLFromFloat(0.10),
	}
	assert.Contains(t, d.Describe(), "pricing constant")
}
