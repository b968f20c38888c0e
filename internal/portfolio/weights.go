package portfolio

import (
	"fmt"

	"github.com/quantfoundry/factors/internal/contracts"
)

// WeightColumn returns the panel column supplying raw weights for a
// method; empty string means equal weighting. Unknown methods are a
// configuration error.
func WeightColumn(method contracts.WeightingMethod) (string, error) {
	switch method {
	case contracts.WeightEqual:
		return "", nil
	case contracts.WeightMarketCap:
		return contracts.Lagged(contracts.ColMarketCap), nil
	case contracts.WeightInverseVariance:
		return contracts.ColInverseVariance, nil
	default:
		return "", fmt.Errorf("%w: unknown weighting method %q", contracts.ErrInvalidConfig, method)
	}
}

// LegReturn computes a leg's weighted return and its normalized
// snapshot under the given weighting method. Rows whose weight column
// is undefined carry zero weight and drop out of both the sum and the
// snapshot. A zero total weight leaves the return undefined, which is
// distinct from a computed zero.
func LegReturn(leg contracts.Panel, method contracts.WeightingMethod, returnCol string) (contracts.Leg, contracts.Metric, error) {
	weightCol, err := WeightColumn(method)
	if err != nil {
		return nil, contracts.Undefined(), err
	}

	total := 0.0
	raw := make(map[string]float64, len(leg))
	for _, row := range leg {
		w := 1.0
		if weightCol != "" {
			v, ok := row.Value(weightCol)
			if !ok || v <= 0 {
				continue
			}
			w = v
		}
		raw[row.Asset] = w
		total += w
	}

	if total == 0 {
		return nil, contracts.Undefined(), nil
	}

	snapshot := make(contracts.Leg, len(raw))
	ret := 0.0
	for _, row := range leg {
		w, ok := raw[row.Asset]
		if !ok {
			continue
		}
		weight := w / total
		r := row.Cols[returnCol]
		snapshot[row.Asset] = contracts.Position{Weight: weight, PeriodReturn: r}
		ret += weight * r
	}

	return snapshot, contracts.Defined(ret), nil
}
