// Package billing provides the domain model for the usage-metering and
// billing-ledger bounded context.
//
// The platform charges accounts per AI-evaluated candidate and per AI-analyzed
// question. This package turns completed evaluation sessions into immutable
// ledger charges, rolls charges into monthly invoices, derives prepaid credit
// balances, and classifies drift between the evaluation ground truth and the
// ledger.
//
// Key Aggregates:
//   - Charge: immutable ledger row representing money owed for one metering event
//   - Invoice: monthly rollup of an account's charges, totals always recomputed
//
// Value Objects:
//   - ReferencePeriod: the (month, year) an invoice covers
//   - AdmissionDecision: outcome of a credit ceiling pre-flight check
//   - Discrepancy: one classified difference between expected and actual charges
//
// Balances are never stored. The credit balance of an account is always derived
// as creditCeiling - SUM(billedAmount) over that account's charges, which
// removes the drift class that cached running balances accumulate.
package billing
