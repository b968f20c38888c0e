package contracts

import (
	"fmt"
	"time"
)

// WeightingMethod selects how leg returns are averaged.
type WeightingMethod string

const (
	WeightEqual           WeightingMethod = "equal"
	WeightMarketCap       WeightingMethod = "market_cap"
	WeightInverseVariance WeightingMethod = "inverse_variance"
)

// Valid reports whether the weighting method is one of the known set.
func (w WeightingMethod) Valid() bool {
	switch w {
	case WeightEqual, WeightMarketCap, WeightInverseVariance:
		return true
	}
	return false
}

// RunConfig describes one factor computation run. It is supplied once
// by the caller and read-only for the lifetime of the run.
type RunConfig struct {
	Factor     string          `json:"factor"`
	Breakpoint float64         `json:"breakpoint"`  // fraction of the ranked cross-section per leg, (0, 0.5]
	MinAssets  int             `json:"min_assets"`  // periods with fewer eligible assets are skipped
	Weighting  WeightingMethod `json:"weighting"`   // equal | market_cap | inverse_variance
	Lookback   int             `json:"lookback"`    // signal horizon in periods, factor-specific default applies when 0

	// Eligibility thresholds. Zero disables the corresponding filter.
	MinMarketCap    float64 `json:"min_market_cap"`
	MinVolume       float64 `json:"min_volume"`
	MinLifetimeDays int     `json:"min_lifetime_days"`

	// Date range. Zero values mean unbounded on that side.
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Validate checks the configuration up front. Invalid configuration is
// fatal to a run, it is never masked or defaulted away.
func (c *RunConfig) Validate() error {
	if c.Factor == "" {
		return fmt.Errorf("%w: factor name is required", ErrInvalidConfig)
	}
	if c.Breakpoint <= 0 || c.Breakpoint > 0.5 {
		return fmt.Errorf("%w: breakpoint %v must be in (0, 0.5]", ErrInvalidConfig, c.Breakpoint)
	}
	if c.MinAssets < 1 {
		return fmt.Errorf("%w: min_assets %d must be >= 1", ErrInvalidConfig, c.MinAssets)
	}
	if !c.Weighting.Valid() {
		return fmt.Errorf("%w: unknown weighting method %q", ErrInvalidConfig, c.Weighting)
	}
	if c.Lookback < 0 {
		return fmt.Errorf("%w: lookback %d must be >= 0", ErrInvalidConfig, c.Lookback)
	}
	if c.MinMarketCap < 0 || c.MinVolume < 0 || c.MinLifetimeDays < 0 {
		return fmt.Errorf("%w: thresholds must be >= 0", ErrInvalidConfig)
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return fmt.Errorf("%w: end date %s before start date %s",
			ErrInvalidConfig, c.End.Format("2006-01-02"), c.Start.Format("2006-01-02"))
	}
	return nil
}
