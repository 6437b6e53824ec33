package billing

import (
	"github.com/entrevistiaproject-ai/entrevistia-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Pricing constants. Billed amounts are flat and intentionally decoupled from
// the variable provider cost; the difference is margin, tracked internally only.
var (
	// BaseFeePerCandidate is charged once per evaluated candidate (BRL)
	BaseFeePerCandidate = decimal.NewFromFloat(1.00)

	// PerQuestionAnalysisFee is charged per AI-analyzed question answer (BRL)
	PerQuestionAnalysisFee = decimal.NewFromFloat(0.25)
)

// Provider cost constants. Rates are quoted by the AI provider in USD and
// converted at a fixed reference rate; precision beyond that rate is a non-goal.
var (
	// InputTokenRatePerMillion is the provider rate for prompt tokens (USD per 1M tokens)
	InputTokenRatePerMillion = decimal.NewFromFloat(2.50)

	// OutputTokenRatePerMillion is the provider rate for completion tokens (USD per 1M tokens)
	OutputTokenRatePerMillion = decimal.NewFromFloat(10.00)

	// TranscriptionRatePerMinute is the provider rate for audio transcription (USD per minute)
	TranscriptionRatePerMinute = decimal.NewFromFloat(0.006)

	// InfraOverheadMultiplier covers retries, orchestration and storage on top of raw provider rates
	InfraOverheadMultiplier = decimal.NewFromFloat(1.15)

	// USDToBRLReferenceRate is the fixed conversion rate used for provider costs
	USDToBRLReferenceRate = decimal.NewFromFloat(5.00)

	million = decimal.NewFromInt(1_000_000)
	sixty   = decimal.NewFromInt(60)
)

// CostOfQuestionAnalysis returns the internal provider cost of analyzing one
// question answer, linear in token counts. Inputs are clamped to zero.
func CostOfQuestionAnalysis(inputTokens, outputTokens int64) valueobject.Money {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	inputCost := decimal.NewFromInt(inputTokens).Mul(InputTokenRatePerMillion).Div(million)
	outputCost := decimal.NewFromInt(outputTokens).Mul(OutputTokenRatePerMillion).Div(million)

	usd := inputCost.Add(outputCost).Mul(InfraOverheadMultiplier)
	return valueobject.NewMoneyBRL(usd.Mul(USDToBRLReferenceRate))
}

// CostOfTranscription returns the internal provider cost of transcribing an
// answer recording, linear in duration. Inputs are clamped to zero.
func CostOfTranscription(durationSeconds int64) valueobject.Money {
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	usd := decimal.NewFromInt(durationSeconds).
		Div(sixty).
		Mul(TranscriptionRatePerMinute).
		Mul(InfraOverheadMultiplier)
	return valueobject.NewMoneyBRL(usd.Mul(USDToBRLReferenceRate))
}

// BilledAmountForCandidate returns the flat price quoted to the account for one
// evaluated candidate: the base fee plus the per-question analysis fee for each
// answered question. Inputs are clamped to zero.
func BilledAmountForCandidate(questionCount int) valueobject.Money {
	if questionCount < 0 {
		questionCount = 0
	}
	amount := BaseFeePerCandidate.Add(
		PerQuestionAnalysisFee.Mul(decimal.NewFromInt(int64(questionCount))),
	)
	return valueobject.NewMoneyBRL(amount)
}
