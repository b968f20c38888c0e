package contracts

import "time"

// Position is one asset's stake in a leg for one period.
type Position struct {
	Weight       float64 `json:"weight"`
	PeriodReturn float64 `json:"period_return"`
}

// Leg maps asset to its position within one side of the portfolio.
type Leg map[string]Position

// TotalWeight returns the sum of position weights.
func (l Leg) TotalWeight() float64 {
	total := 0.0
	for _, pos := range l {
		total += pos.Weight
	}
	return total
}

// HHI is the Herfindahl-Hirschman concentration index, the sum of
// squared weights. Undefined for an empty leg.
func (l Leg) HHI() Metric {
	if len(l) == 0 {
		return Undefined()
	}
	sum := 0.0
	for _, pos := range l {
		sum += pos.Weight * pos.Weight
	}
	return Defined(sum)
}

// PortfolioSnapshot records one period's long and short membership.
// Used for attribution and concentration only; return computation
// works directly off the cross-section.
type PortfolioSnapshot struct {
	Date  time.Time `json:"date"`
	Long  Leg       `json:"long"`
	Short Leg       `json:"short"`
}
