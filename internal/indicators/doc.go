// Package indicators derives the squeeze-risk indicators shown on the
// dashboard from the latest inventory record, the history series and the
// external metrics.
//
// # Indicators
//
//   - Registered ratio: registered / (registered + eligible)
//   - Squeeze tier: CRITICAL below 10M oz registered, ALERT below 50M oz, else SAFE
//   - Withdrawal trend: registered change against the entry nearest to seven days earlier
//   - OI leverage: open interest × 5000 oz per contract / registered
//
// Every indicator is a domain.Indicator. A value whose inputs are missing is
// undefined, renders as "N/A" and is never coerced to zero.
//
// Compute is pure and safe for concurrent use:
//
//	ind := indicators.Compute(record, history, metrics)
//	fmt.Println(ind.WithdrawalTrend) // "-1250000" or "N/A"
package indicators
