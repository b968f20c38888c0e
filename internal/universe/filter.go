package universe

import (
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

// Filter applies eligibility thresholds to each date's cross-section.
// All predicates are row-level: a filter can empty out a period but
// never removes a period outright, the minimum-assets floor downstream
// decides what to do with thin cross-sections.
type Filter struct {
	cfg contracts.RunConfig
	log *logger.Logger
}

// NewFilter creates a cross-section filter from the run configuration.
// Thresholds set to zero are disabled.
func NewFilter(cfg contracts.RunConfig, log *logger.Logger) *Filter {
	return &Filter{cfg: cfg, log: log}
}

// Apply runs the configured filters in sequence and returns the
// surviving rows. First-observed dates for the lifetime filter are
// taken from the input panel, so filter order cannot change results.
func (f *Filter) Apply(in contracts.Panel) contracts.Panel {
	out := in
	firstSeen := firstObserved(in)

	if f.cfg.MinMarketCap > 0 {
		out = f.byMarketCap(out)
	}
	if f.cfg.MinVolume > 0 {
		out = f.byLiquidity(out)
	}
	if f.cfg.MinLifetimeDays > 0 {
		out = f.byLifetime(out, firstSeen)
	}

	f.log.WithFields(map[string]interface{}{
		"rows_in":  len(in),
		"rows_out": len(out),
	}).Debug("Cross-section filters applied")
	return out
}

// byMarketCap keeps rows whose lagged market cap exceeds the floor.
// Rows without a lagged market cap fail the threshold.
func (f *Filter) byMarketCap(in contracts.Panel) contracts.Panel {
	return keep(in, func(row contracts.PanelRow) bool {
		v, ok := row.Value(contracts.Lagged(contracts.ColMarketCap))
		return ok && v > f.cfg.MinMarketCap
	})
}

// byLiquidity keeps rows whose lagged 24h volume exceeds the floor.
func (f *Filter) byLiquidity(in contracts.Panel) contracts.Panel {
	return keep(in, func(row contracts.PanelRow) bool {
		v, ok := row.Value(contracts.Lagged(contracts.ColVolume))
		return ok && v > f.cfg.MinVolume
	})
}

// byLifetime keeps rows dated at least N days after the asset's first
// observation.
func (f *Filter) byLifetime(in contracts.Panel, firstSeen map[string]time.Time) contracts.Panel {
	minAge := time.Duration(f.cfg.MinLifetimeDays) * 24 * time.Hour
	return keep(in, func(row contracts.PanelRow) bool {
		first, ok := firstSeen[row.Asset]
		return ok && row.Date.Sub(first) >= minAge
	})
}

func keep(in contracts.Panel, pred func(contracts.PanelRow) bool) contracts.Panel {
	out := make(contracts.Panel, 0, len(in))
	for _, row := range in {
		if pred(row) {
			out = append(out, row)
		}
	}
	return out
}

func firstObserved(in contracts.Panel) map[string]time.Time {
	first := make(map[string]time.Time)
	for _, row := range in {
		if prev, ok := first[row.Asset]; !ok || row.Date.Before(prev) {
			first[row.Asset] = row.Date
		}
	}
	return first
}
