package panel

import (
	"sort"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

// Aggregation selects how a column is combined within a resampling bucket.
type Aggregation string

const (
	AggLast Aggregation = "last"
	AggSum  Aggregation = "sum"
	AggMean Aggregation = "mean"
)

// DefaultRules returns the standard per-column aggregation: last
// observation for prices and market caps, summed volume. Columns
// without a rule fall back to last.
func DefaultRules() map[string]Aggregation {
	return map[string]Aggregation{
		contracts.ColPrice:     AggLast,
		contracts.ColMarketCap: AggLast,
		contracts.ColVolume:    AggSum,
	}
}

// Preparer turns a raw (date, asset) panel into the lagged, resampled
// dataset the portfolio stages consume. Every method returns a fresh
// panel; inputs are never mutated.
type Preparer struct {
	log *logger.Logger
}

// NewPreparer creates a panel preparer.
func NewPreparer(log *logger.Logger) *Preparer {
	return &Preparer{log: log}
}

// Resample buckets each asset's sub-series to the target frequency and
// aggregates each column per the given rules. Output rows are labeled
// with the bucket's end date and sorted by (date, asset).
func (p *Preparer) Resample(in contracts.Panel, freq Frequency, rules map[string]Aggregation) contracts.Panel {
	if rules == nil {
		rules = DefaultRules()
	}

	// bucket rows per (asset, bucket end), preserving date order
	type bucketKey struct {
		asset string
		end   time.Time
	}
	buckets := make(map[bucketKey]contracts.Panel)
	var order []bucketKey

	for _, row := range sortedCopy(in) {
		key := bucketKey{asset: row.Asset, end: freq.BucketEnd(row.Date)}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], row)
	}

	out := make(contracts.Panel, 0, len(order))
	for _, key := range order {
		cols := make(map[string]float64)
		for _, col := range columnsOf(buckets[key]) {
			rule, ok := rules[col]
			if !ok {
				rule = AggLast
			}
			if v, ok := aggregate(buckets[key], col, rule); ok {
				cols[col] = v
			}
		}
		out = append(out, contracts.PanelRow{Date: key.end, Asset: key.asset, Cols: cols})
	}

	out.SortByDateAsset()
	p.log.WithFields(map[string]interface{}{
		"frequency": string(freq),
		"rows_in":   len(in),
		"rows_out":  len(out),
	}).Debug("Panel resampled")
	return out
}

// PctChange adds a k-period percentage-change column for col, computed
// per asset in date order. The first k observations of each asset stay
// undefined, as does any change against a zero base.
func (p *Preparer) PctChange(in contracts.Panel, col string, periods int) contracts.Panel {
	out := sortedCopy(in)
	target := contracts.PctChangeColumn(col, periods)

	for _, rows := range byAsset(out) {
		for i := periods; i < len(rows); i++ {
			curr, okCurr := rows[i].Value(col)
			base, okBase := rows[i-periods].Value(col)
			if !okCurr || !okBase || base == 0 {
				continue
			}
			rows[i].Cols[target] = (curr - base) / base
		}
	}

	out.SortByDateAsset()
	return out
}

// Lag adds a one-period shifted copy of each given column, per asset.
// Assignment at period t then only sees information from t-1, which
// keeps the portfolio sort free of look-ahead bias.
func (p *Preparer) Lag(in contracts.Panel, cols ...string) contracts.Panel {
	out := sortedCopy(in)

	for _, rows := range byAsset(out) {
		for i := 1; i < len(rows); i++ {
			for _, col := range cols {
				if v, ok := rows[i-1].Value(col); ok {
					rows[i].Cols[contracts.Lagged(col)] = v
				}
			}
		}
	}

	out.SortByDateAsset()
	return out
}

// Variance adds per-asset variance and inverse-variance columns from
// the one-period price change series. The variance is constant across
// an asset's rows. Assets with fewer than two defined returns, or with
// zero variance, leave both columns undefined so inverse-variance
// weighting excludes them.
func (p *Preparer) Variance(in contracts.Panel) contracts.Panel {
	out := sortedCopy(in)
	retCol := contracts.PctChangeColumn(contracts.ColPrice, 1)

	for asset, rows := range byAsset(out) {
		var returns []float64
		for _, row := range rows {
			if v, ok := row.Value(retCol); ok {
				returns = append(returns, v)
			}
		}
		v, ok := sampleVariance(returns)
		if !ok {
			p.log.WithField("asset", asset).Debug("Variance undefined, asset excluded from inverse-variance weighting")
			continue
		}
		for _, row := range rows {
			row.Cols[contracts.ColVariance] = v
			if v > 0 {
				row.Cols[contracts.ColInverseVariance] = 1 / v
			}
		}
	}

	out.SortByDateAsset()
	return out
}

func sampleVariance(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return ss / float64(len(xs)-1), true
}

func aggregate(rows contracts.Panel, col string, rule Aggregation) (float64, bool) {
	switch rule {
	case AggSum:
		sum, any := 0.0, false
		for _, row := range rows {
			if v, ok := row.Value(col); ok {
				sum += v
				any = true
			}
		}
		return sum, any
	case AggMean:
		sum, n := 0.0, 0
		for _, row := range rows {
			if v, ok := row.Value(col); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return 0, false
		}
		return sum / float64(n), true
	default: // last defined observation in the bucket
		for i := len(rows) - 1; i >= 0; i-- {
			if v, ok := rows[i].Value(col); ok {
				return v, true
			}
		}
		return 0, false
	}
}

func columnsOf(rows contracts.Panel) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for col := range row.Cols {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// byAsset groups rows by asset, each group in date order. The groups
// share the panel's row maps so in-place column additions land in the
// returned panel.
func byAsset(p contracts.Panel) map[string]contracts.Panel {
	groups := make(map[string]contracts.Panel)
	for _, row := range p {
		groups[row.Asset] = append(groups[row.Asset], row)
	}
	for _, rows := range groups {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	}
	return groups
}

func sortedCopy(in contracts.Panel) contracts.Panel {
	out := in.Clone()
	out.SortByDateAsset()
	return out
}
