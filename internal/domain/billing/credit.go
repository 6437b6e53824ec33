package billing

import (
	"time"

	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared"
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FreeTierCredit is the prepaid credit every account starts with (BRL)
var FreeTierCredit = decimal.NewFromFloat(50.00)

// CreditGrant is an administratively adjustable extra-credit grant on top of
// the free-tier base. One row per account; absence means no extra credit.
type CreditGrant struct {
	shared.BaseEntity
	AccountID   uuid.UUID
	ExtraCredit valueobject.Money
	GrantedBy   string
	Reason      string
}

// NewCreditGrant creates a grant of extra credit for an account
func NewCreditGrant(accountID uuid.UUID, extraCredit valueobject.Money, grantedBy, reason string) (*CreditGrant, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if extraCredit.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Extra credit cannot be negative")
	}
	return &CreditGrant{
		BaseEntity:  shared.NewBaseEntity(),
		AccountID:   accountID,
		ExtraCredit: extraCredit,
		GrantedBy:   grantedBy,
		Reason:      reason,
	}, nil
}

// CreditCeiling returns the maximum cumulative billed amount for an account:
// the free-tier base plus any extra-credit grant.
func CreditCeiling(extraCredit valueobject.Money) valueobject.Money {
	return valueobject.NewMoneyBRL(FreeTierCredit).MustAdd(extraCredit)
}

// AdmissionDecision is the outcome of a credit ceiling pre-flight check
type AdmissionDecision struct {
	Allowed    bool
	ReasonCode string // set when denied; machine-readable, e.g. UPGRADE_REQUIRED
	Balance    valueobject.Money
	Ceiling    valueobject.Money
}

// Admit decides whether a costed operation may start given the account's
// ceiling and the total already billed. The balance is derived on every check,
// never read from a stored field. Denial happens at balance <= 0; a balance
// that would go negative mid-flight is an accepted bounded overspend handled
// by the notification pipeline, not by this gate.
func Admit(ceiling, totalBilled valueobject.Money) AdmissionDecision {
	balance := ceiling.MustSubtract(totalBilled)
	if balance.IsPositive() {
		return AdmissionDecision{Allowed: true, Balance: balance, Ceiling: ceiling}
	}
	return AdmissionDecision{
		Allowed:    false,
		ReasonCode: shared.ErrUpgradeRequired.Code,
		Balance:    balance,
		Ceiling:    ceiling,
	}
}

// UsageThreshold is a fraction of the credit ceiling that triggers a one-time
// notification when crossed.
type UsageThreshold int

// Notification thresholds as percentages of the ceiling
const (
	Threshold50  UsageThreshold = 50
	Threshold75  UsageThreshold = 75
	Threshold90  UsageThreshold = 90
	Threshold100 UsageThreshold = 100
)

// AllUsageThresholds returns the thresholds in ascending order
func AllUsageThresholds() []UsageThreshold {
	return []UsageThreshold{Threshold50, Threshold75, Threshold90, Threshold100}
}

// CrossedThresholds returns every threshold the account's usage has reached.
// Each returned threshold drives at most one notification per account; the
// dedup is the caller's responsibility (idempotency store + durable marks).
func CrossedThresholds(totalBilled, ceiling valueobject.Money) []UsageThreshold {
	if !ceiling.IsPositive() {
		return nil
	}

	hundred := decimal.NewFromInt(100)
	usedPct := totalBilled.Amount().Mul(hundred).Div(ceiling.Amount())

	var crossed []UsageThreshold
	for _, th := range AllUsageThresholds() {
		if usedPct.GreaterThanOrEqual(decimal.NewFromInt(int64(th))) {
			crossed = append(crossed, th)
		}
	}
	return crossed
}

// ThresholdMark records that the one-time notification for (account,
// threshold) has been sent. Reset only by explicit operator action.
type ThresholdMark struct {
	shared.BaseEntity
	AccountID  uuid.UUID
	Threshold  UsageThreshold
	NotifiedAt time.Time
}

// NewThresholdMark creates a durable mark for a sent threshold notification
func NewThresholdMark(accountID uuid.UUID, threshold UsageThreshold) (*ThresholdMark, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	return &ThresholdMark{
		BaseEntity: shared.NewBaseEntity(),
		AccountID:  accountID,
		Threshold:  threshold,
		NotifiedAt: time.Now().UTC(),
	}, nil
}
