package contracts

import "time"

// PerformanceReport is a stateless value object derived from a
// ReturnSeries. Recomputed fresh every time, never mutated in place.
type PerformanceReport struct {
	Factor  string `json:"factor"`
	RunID   string `json:"run_id,omitempty"`
	Periods int    `json:"periods"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Years     float64   `json:"years"`

	CumulativeReturn Metric `json:"cumulative_return"`
	AnnualizedReturn Metric `json:"annualized_return"`
	Sharpe           Metric `json:"sharpe_ratio"`
	Sortino          Metric `json:"sortino_ratio"`
	MaxDrawdown      Metric `json:"max_drawdown"`

	LongCumulative  Metric `json:"long_cumulative_return"`
	ShortCumulative Metric `json:"short_cumulative_return"`

	HHI      Metric `json:"hhi"`
	LongHHI  Metric `json:"long_hhi"`
	ShortHHI Metric `json:"short_hhi"`
}

// BetaEstimate is the result of regressing an asset or portfolio
// return series on a factor return series.
type BetaEstimate struct {
	Beta         float64  `json:"beta"`
	Alpha        float64  `json:"alpha"`
	Observations int      `json:"observations"`
	Excluded     []string `json:"excluded_assets,omitempty"`
}
