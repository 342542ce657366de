package domain

import (
	"encoding/json"
	"strconv"
)

// NotAvailable is how undefined values are rendered to consumers
const NotAvailable = "N/A"

// Indicator is a derived value that may be undefined. Undefined is distinct
// from zero and serializes as "N/A".
type Indicator struct {
	Value   float64
	Defined bool
}

// Defined returns a defined indicator
func Defined(v float64) Indicator {
	return Indicator{Value: v, Defined: true}
}

// Undefined returns an undefined indicator
func Undefined() Indicator {
	return Indicator{}
}

// String renders the value or N/A
func (i Indicator) String() string {
	if !i.Defined {
		return NotAvailable
	}
	return strconv.FormatFloat(i.Value, 'f', -1, 64)
}

// MarshalJSON emits a number when defined and "N/A" otherwise
func (i Indicator) MarshalJSON() ([]byte, error) {
	if !i.Defined {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(i.Value)
}

// UnmarshalJSON accepts a number or "N/A"
func (i *Indicator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*i = Defined(v)
	return nil
}

// SqueezeTier is a coarse risk class derived from registered inventory
type SqueezeTier string

const (
	TierSafe     SqueezeTier = "SAFE"
	TierAlert    SqueezeTier = "ALERT"
	TierCritical SqueezeTier = "CRITICAL"
	TierUnknown  SqueezeTier = NotAvailable
)

// TierAssessment carries the tier and its explanatory copy
type TierAssessment struct {
	Tier        SqueezeTier `json:"tier"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	PriceImpact string      `json:"price_impact"`
}

// DerivedIndicators are recomputed on every refresh and never persisted
type DerivedIndicators struct {
	RegisteredRatio     Indicator      `json:"registered_ratio"`
	SqueezeTier         TierAssessment `json:"squeeze_tier"`
	WithdrawalTrend     Indicator      `json:"withdrawal_trend"`
	OIToRegisteredRatio Indicator      `json:"oi_to_registered_ratio"`
}
