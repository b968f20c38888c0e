package factors

import (
	"math"
	"sort"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/panel"
)

// momentum ranks by the lagged k-period price change: long recent
// winners, short recent losers.
var momentum = Definition{
	Name:            "momentum",
	Description:     "Momentum factor based on trailing price change",
	DefaultLookback: 4,
	Signal: func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error) {
		pctCol := contracts.PctChangeColumn(contracts.ColPrice, lookback)
		p = prep.PctChange(p, contracts.ColPrice, lookback)
		p = prep.Lag(p, pctCol)
		return p, contracts.Lagged(pctCol), nil
	},
}

// momentumV2 scales the momentum signal by a volatility ratio,
// |rolling mean| / rolling stdev of one-period returns, so choppy
// price paths rank below steady ones with the same trailing change.
var momentumV2 = Definition{
	Name:            "momentum_v2",
	Description:     "Volatility-adjusted momentum factor",
	DefaultLookback: 4,
	Signal: func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error) {
		pctCol := contracts.PctChangeColumn(contracts.ColPrice, lookback)
		p = prep.PctChange(p, contracts.ColPrice, lookback)
		// the vol-ratio window follows the signal horizon
		p = addVolRatio(p, ReturnColumn(), lookback)
		p = addFilteredMomentum(p, pctCol)
		p = prep.Lag(p, "filtered_momentum")
		return p, contracts.Lagged("filtered_momentum"), nil
	},
}

// addVolRatio computes |rolling mean| / rolling stdev of retCol per
// asset over the trailing window, with a minimum of one observation.
// An undefined or zero stdev yields a zero ratio.
func addVolRatio(p contracts.Panel, retCol string, window int) contracts.Panel {
	out := p.Clone()
	out.SortByDateAsset()

	groups := make(map[string]contracts.Panel)
	for _, row := range out {
		groups[row.Asset] = append(groups[row.Asset], row)
	}

	for _, rows := range groups {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

		var history []float64
		for _, row := range rows {
			v, ok := row.Value(retCol)
			if !ok {
				v = math.NaN()
			}
			history = append(history, v)

			start := len(history) - window
			if start < 0 {
				start = 0
			}
			ratio := volRatio(history[start:])
			row.Cols["vol_ratio"] = ratio
		}
	}

	out.SortByDateAsset()
	return out
}

func volRatio(window []float64) float64 {
	var xs []float64
	for _, v := range window {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}
	if len(xs) == 0 {
		return 0
	}

	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	if len(xs) < 2 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(xs)-1))
	if std == 0 {
		return 0
	}
	return math.Abs(mean) / std
}

// addFilteredMomentum multiplies the raw momentum column by the
// volatility ratio. Rows without a momentum value stay undefined.
func addFilteredMomentum(p contracts.Panel, momCol string) contracts.Panel {
	out := p.Clone()
	for _, row := range out {
		mom, ok := row.Value(momCol)
		if !ok {
			continue
		}
		row.Cols["filtered_momentum"] = mom * row.Cols["vol_ratio"]
	}
	return out
}
