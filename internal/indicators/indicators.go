package indicators

import (
	"time"

	"silverpulse/pkg/contracts/domain"
)

// Tier thresholds in troy ounces of registered inventory
const (
	CriticalThreshold = 10_000_000
	AlertThreshold    = 50_000_000
)

// ContractSizeOunces is the COMEX silver futures contract size
const ContractSizeOunces = 5000

// Withdrawal trend window
const (
	TrendLookback  = 7 * 24 * time.Hour
	TrendTolerance = 5 * 24 * time.Hour
)

var tierCopy = map[domain.SqueezeTier]domain.TierAssessment{
	domain.TierCritical: {
		Tier:        domain.TierCritical,
		Label:       "🔴 CRITICAL - Severe Short Squeeze Likely",
		Description: "Registered inventory is critically low. Short squeeze conditions are imminent or underway.",
		PriceImpact: "📈 Silver Price: WILL SURGE - Shorts forced to cover at any price. Massive volatility expected.",
	},
	domain.TierAlert: {
		Tier:        domain.TierAlert,
		Label:       "🟠 HIGH ALERT - Squeeze Conditions Building",
		Description: "Registered inventory is dangerously low. Squeeze conditions are likely to develop.",
		PriceImpact: "📈 Silver Price: UPWARD PRESSURE - Supply crisis imminent. Expect rapid price increases.",
	},
	domain.TierSafe: {
		Tier:        domain.TierSafe,
		Label:       "🟢 SAFE - Supply Stable",
		Description: "Registered inventory is healthy. Normal market conditions.",
		PriceImpact: "📉 Silver Price: DOWNWARD PRESSURE - Abundant supply prevents short squeeze. Price may decline or stagnate.",
	},
	domain.TierUnknown: {
		Tier:        domain.TierUnknown,
		Label:       domain.NotAvailable,
		Description: "Registered inventory could not be determined.",
	},
}

// Compute derives all indicators. record may be nil and metrics may lack
// any kind; the dependent indicators are then undefined.
func Compute(record *domain.NormalizedRecord, history []domain.HistoryEntry, metrics map[domain.MetricKind]*domain.ExternalMetric) domain.DerivedIndicators {
	out := domain.DerivedIndicators{
		RegisteredRatio:     RegisteredRatio(record),
		SqueezeTier:         Assess(record),
		OIToRegisteredRatio: Undefined(),
		WithdrawalTrend:     WithdrawalTrend(record, history),
	}

	if oi, ok := metrics[domain.MetricOpenInterest].Float(); ok {
		out.OIToRegisteredRatio = OIToRegisteredRatio(oi, record)
	}
	return out
}

// Undefined is shorthand for domain.Undefined
func Undefined() domain.Indicator {
	return domain.Undefined()
}

// RegisteredRatio is registered / (registered + eligible)
func RegisteredRatio(record *domain.NormalizedRecord) domain.Indicator {
	if share, ok := record.RegisteredShare(); ok {
		return domain.Defined(share)
	}
	return Undefined()
}

// Classify maps registered ounces to a tier
func Classify(registered float64) domain.SqueezeTier {
	switch {
	case registered < CriticalThreshold:
		return domain.TierCritical
	case registered < AlertThreshold:
		return domain.TierAlert
	default:
		return domain.TierSafe
	}
}

// Assess returns the tier with its explanatory copy
func Assess(record *domain.NormalizedRecord) domain.TierAssessment {
	if record == nil {
		return tierCopy[domain.TierUnknown]
	}
	return tierCopy[Classify(record.Registered)]
}

// OIToRegisteredRatio is the paper claims per registered ounce
func OIToRegisteredRatio(openInterest float64, record *domain.NormalizedRecord) domain.Indicator {
	if record == nil || record.Registered <= 0 {
		return Undefined()
	}
	return domain.Defined(openInterest * ContractSizeOunces / record.Registered)
}

// WithdrawalTrend is latest registered minus the registered value of the
// real history entry nearest to seven days before the latest date. Ties go
// to the earlier entry. Undefined when that entry is more than five days
// from the target. Synthetic entries are ignored.
func WithdrawalTrend(record *domain.NormalizedRecord, history []domain.HistoryEntry) domain.Indicator {
	latestDate, latestRegistered, ok := latest(record, history)
	if !ok {
		return Undefined()
	}

	target := latestDate.Add(-TrendLookback)
	var (
		best     domain.HistoryEntry
		bestDist time.Duration
		found    bool
	)
	for _, e := range history {
		if e.Synthetic || !e.Date.Before(latestDate) {
			continue
		}
		dist := absDuration(domain.Day(e.Date).Sub(target))
		if !found || dist < bestDist || (dist == bestDist && e.Date.Before(best.Date)) {
			best, bestDist, found = e, dist, true
		}
	}

	if !found || bestDist > TrendTolerance {
		return Undefined()
	}
	return domain.Defined(latestRegistered - best.Registered)
}

// latest returns the reference day and registered value: the record when
// present, else the newest real history entry.
func latest(record *domain.NormalizedRecord, history []domain.HistoryEntry) (time.Time, float64, bool) {
	if record != nil && !record.AsOf.IsZero() {
		return domain.Day(record.AsOf), record.Registered, true
	}

	var newest *domain.HistoryEntry
	for i := range history {
		e := &history[i]
		if e.Synthetic {
			continue
		}
		if newest == nil || e.Date.After(newest.Date) {
			newest = e
		}
	}
	if newest == nil {
		return time.Time{}, 0, false
	}
	if record != nil {
		return domain.Day(newest.Date), record.Registered, true
	}
	return domain.Day(newest.Date), newest.Registered, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
