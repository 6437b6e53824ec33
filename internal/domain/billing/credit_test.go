package billing

import (
	"testing"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditCeiling(t *testing.T) {
	t.Run("free tier only", func(t *testing.T) {
		c := CreditCeiling(valueobject.ZeroBRL())
		assert.True(t, c.Amount().Equal(decimal.NewFromFloat(50.00)))
	})

	t.Run("with extra grant", func(t *testing.T) {
		c := CreditCeiling(valueobject.NewMoneyBRLFromFloat(100.00))
		assert.True(t, c.Amount().Equal(decimal.NewFromFloat(150.00)))
	})
}

func TestNewCreditGrant(t *testing.T) {
	t.Run("valid grant", func(t *testing.T) {
		g, err := NewCreditGrant(uuid.New(), valueobject.NewMoneyBRLFromFloat(25.00), "ops@entrevistia", "pilot extension")
		require.NoError(t, err)
		assert.True(t, g.ExtraCredit.IsPositive())
	})

	t.Run("rejects negative credit", func(t *testing.T) {
		_, err := NewCreditGrant(uuid.New(), valueobject.NewMoneyBRLFromFloat(-1), "ops", "")
		assert.Error(t, err)
	})

	t.Run("rejects empty account", func(t *testing.T) {
		_, err := NewCreditGrant(uuid.Nil, valueobject.ZeroBRL(), "ops", "")
		assert.Error(t, err)
	})
}

func TestAdmit(t *testing.T) {
	ceiling := valueobject.NewMoneyBRLFromFloat(50.00)

	t.Run("allows with positive balance", func(t *testing.T) {
		d := Admit(ceiling, valueobject.NewMoneyBRLFromFloat(49.00))
		assert.True(t, d.Allowed)
		assert.Empty(t, d.ReasonCode)
		assert.True(t, d.Balance.Amount().Equal(decimal.NewFromFloat(1.00)))
	})

	t.Run("denies at exactly zero balance", func(t *testing.T) {
		d := Admit(ceiling, valueobject.NewMoneyBRLFromFloat(50.00))
		assert.False(t, d.Allowed)
		assert.Equal(t, "UPGRADE_REQUIRED", d.ReasonCode)
	})

	t.Run("denies on negative balance", func(t *testing.T) {
		d := Admit(ceiling, valueobject.NewMoneyBRLFromFloat(52.50))
		assert.False(t, d.Allowed)
		assert.Equal(t, "UPGRADE_REQUIRED", d.ReasonCode)
	})

	t.Run("monotonic: denial persists as billed grows", func(t *testing.T) {
		billed := valueobject.NewMoneyBRLFromFloat(50.00)
		for i := 0; i < 10; i++ {
			d := Admit(ceiling, billed)
			assert.False(t, d.Allowed, "billed=%s", billed)
			billed = billed.MustAdd(valueobject.NewMoneyBRLFromFloat(3.50))
		}
	})
}

// The scenario from the pricing sheet: 50.00 ceiling, 3.50 per candidate with
// 10 questions. 14 candidates consume 49.00 and the gate still admits; the
// 15th would push cumulative to 52.50, so its pre-flight check must deny.
func TestAdmissionScenarioFourteenCandidates(t *testing.T) {
	ceiling := CreditCeiling(valueobject.ZeroBRL())
	billed := valueobject.ZeroBRL()
	perCandidate := BilledAmountForCandidate(10)

	for i := 0; i < 14; i++ {
		d := Admit(ceiling, billed)
		require.True(t, d.Allowed, "candidate %d should be admitted", i+1)
		billed = billed.MustAdd(perCandidate)
	}

	assert.True(t, billed.Amount().Equal(decimal.NewFromFloat(49.00)))

	d := Admit(ceiling, billed)
	assert.True(t, d.Allowed, "14th candidate leaves 1.00 of credit, gate still admits")

	billed = billed.MustAdd(perCandidate) // 52.50, overspend already happened
	d = Admit(ceiling, billed)
	assert.False(t, d.Allowed, "15th analysis must be denied before it starts")
	assert.Equal(t, "UPGRADE_REQUIRED", d.ReasonCode)
}

func TestCrossedThresholds(t *testing.T) {
	ceiling := valueobject.NewMoneyBRLFromFloat(100.00)

	t.Run("none below 50 percent", func(t *testing.T) {
		assert.Empty(t, CrossedThresholds(valueobject.NewMoneyBRLFromFloat(49.99), ceiling))
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		got := CrossedThresholds(valueobject.NewMoneyBRLFromFloat(75.00), ceiling)
		assert.Equal(t, []UsageThreshold{Threshold50, Threshold75}, got)
	})

	t.Run("all thresholds past the ceiling", func(t *testing.T) {
		got := CrossedThresholds(valueobject.NewMoneyBRLFromFloat(110.00), ceiling)
		assert.Equal(t, []UsageThreshold{Threshold50, Threshold75, Threshold90, Threshold100}, got)
	})

	t.Run("zero ceiling yields nothing", func(t *testing.T) {
		assert.Empty(t, CrossedThresholds(valueobject.NewMoneyBRLFromFloat(10.00), valueobject.ZeroBRL()))
	})
}

func TestNewThresholdMark(t *testing.T) {
	m, err := NewThresholdMark(uuid.New(), Threshold75)
	require.NoError(t, err)
	assert.Equal(t, Threshold75, m.Threshold)
	assert.False(t, m.NotifiedAt.IsZero())

	_, err = NewThresholdMark(uuid.Nil, Threshold75)
	assert.Error(t, err)
}
