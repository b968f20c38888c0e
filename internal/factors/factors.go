package factors

import (
	"fmt"
	"sort"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/panel"
	"github.com/quantfoundry/factors/pkg/logger"
)

// ReturnColumn is the one-period forward return every factor trades on.
func ReturnColumn() string {
	return contracts.PctChangeColumn(contracts.ColPrice, 1)
}

// Definition describes one factor: how to derive its ranking signal
// from a prepared panel and how the ranked cross-section is cut.
type Definition struct {
	Name        string
	Description string

	// Ascending ranks smallest signal first (long small, as in smb).
	Ascending bool

	// LongOnly factors have no short leg; the factor return is the
	// long leg's return.
	LongOnly bool

	// LegSize, when positive, caps each leg at a fixed member count
	// instead of the breakpoint cutoff.
	LegSize int

	// DefaultLookback is applied when RunConfig.Lookback is zero.
	DefaultLookback int

	// Signal derives the ranking column on a prepared panel and
	// returns the column name. The panel already carries resampled
	// prices, the one-period return and lagged base columns.
	Signal func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error)
}

// registry holds every known factor by name.
var registry = map[string]Definition{
	"smb":         smb,
	"market":      market,
	"momentum":    momentum,
	"momentum_v2": momentumV2,
	"value":       value,
	"growth":      growth,
}

// Get looks up a factor definition by name.
func Get(name string) (Definition, error) {
	def, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", contracts.ErrUnknownFactor, name)
	}
	return def, nil
}

// List returns the registered factor definitions sorted by name.
func List() []Definition {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, registry[name])
	}
	return defs
}

// Lookback resolves the effective signal horizon for a run.
func (d Definition) Lookback(cfg contracts.RunConfig) int {
	if cfg.Lookback > 0 {
		return cfg.Lookback
	}
	if d.DefaultLookback > 0 {
		return d.DefaultLookback
	}
	return 1
}

// Prepare runs the shared pipeline and then the factor's signal
// derivation: weekly resample, one-period price change, lagged market
// cap and volume for filters and weighting, per-asset variance when
// inverse-variance weighting is requested.
func (d Definition) Prepare(prep *panel.Preparer, raw contracts.Panel, cfg contracts.RunConfig, log *logger.Logger) (contracts.Panel, string, error) {
	p := prep.Resample(raw, panel.Weekly, panel.DefaultRules())
	p = prep.PctChange(p, contracts.ColPrice, 1)
	p = prep.Lag(p, contracts.ColMarketCap, contracts.ColVolume)

	if cfg.Weighting == contracts.WeightInverseVariance {
		p = prep.Variance(p)
	}

	p, signalCol, err := d.Signal(prep, p, d.Lookback(cfg))
	if err != nil {
		return nil, "", fmt.Errorf("derive %s signal: %w", d.Name, err)
	}

	log.WithFields(map[string]interface{}{
		"factor": d.Name,
		"signal": signalCol,
		"rows":   len(p),
	}).Debug("Panel prepared")
	return p, signalCol, nil
}
