package factors

import (
	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/panel"
)

// Fundamental metric columns supplied by the data layer.
const (
	ColFees    = "fees"
	ColDAU     = "dau"
	ColRevenue = "revenue"
)

// growthMetrics are the fundamentals the growth composite draws on.
var growthMetrics = []string{ColFees, ColDAU, ColRevenue}

// RequiredMetrics returns the metric columns a factor's panel must
// carry. Market cap backs the filters and weighting for every factor.
func RequiredMetrics(factor string) []string {
	switch factor {
	case "value":
		return []string{contracts.ColMarketCap, ColFees}
	case "growth":
		return append([]string{contracts.ColMarketCap}, growthMetrics...)
	default:
		return []string{contracts.ColMarketCap}
	}
}

// value ranks by the lagged market-cap-to-fees ratio ascending: long
// assets that are cheap relative to the fees they generate.
var value = Definition{
	Name:        "value",
	Description: "Value factor based on MC-to-fees ratio",
	Ascending:   true,
	Signal: func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error) {
		out := p.Clone()
		for _, row := range out {
			mc, okMC := row.Value(contracts.ColMarketCap)
			fees, okFees := row.Value(ColFees)
			if !okMC || !okFees || fees <= 0 {
				continue
			}
			row.Cols["mc_to_fees"] = mc / fees
		}
		out = prep.Lag(out, "mc_to_fees")
		return out, contracts.Lagged("mc_to_fees"), nil
	},
}

// growth ranks by a composite of fundamental growth rates: the mean
// of the available pct-changes over the lookback horizon. Assets with
// no defined component stay unranked for that period.
var growth = Definition{
	Name:            "growth",
	Description:     "Growth factor from fees, DAU and revenue growth rates",
	DefaultLookback: 2,
	Signal: func(prep *panel.Preparer, p contracts.Panel, lookback int) (contracts.Panel, string, error) {
		out := p
		for _, metric := range growthMetrics {
			out = prep.PctChange(out, metric, lookback)
		}

		out = out.Clone()
		for _, row := range out {
			sum, n := 0.0, 0
			for _, metric := range growthMetrics {
				if v, ok := row.Value(contracts.PctChangeColumn(metric, lookback)); ok {
					sum += v
					n++
				}
			}
			if n == 0 {
				continue
			}
			row.Cols["growth_composite"] = sum / float64(n)
		}

		out = prep.Lag(out, "growth_composite")
		return out, contracts.Lagged("growth_composite"), nil
	},
}
