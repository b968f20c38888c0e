package performance

import (
	"math"

	"github.com/quantfoundry/factors/internal/contracts"
)

// Analyzer derives a PerformanceReport from return series and
// portfolio snapshots. It holds no state beyond the annualization
// factor, so the same input always yields the same report.
type Analyzer struct {
	periodsPerYear float64
}

// NewAnalyzer creates an analyzer for the given resampling frequency's
// annualization factor (52 for weekly).
func NewAnalyzer(periodsPerYear float64) *Analyzer {
	return &Analyzer{periodsPerYear: periodsPerYear}
}

// Report computes the full performance report. Degenerate statistics
// come back as undefined metrics, never silently as zero when zero
// would misrepresent them.
func (a *Analyzer) Report(factor string, series, long, short contracts.ReturnSeries, snapshots []contracts.PortfolioSnapshot) contracts.PerformanceReport {
	report := contracts.PerformanceReport{
		Factor:  factor,
		Periods: len(series),
	}
	if len(series) == 0 {
		return report
	}

	report.StartDate = series[0].Date
	report.EndDate = series[len(series)-1].Date
	report.Years = report.EndDate.Sub(report.StartDate).Hours() / 24 / 365

	report.CumulativeReturn = finalCumulative(series)
	report.AnnualizedReturn = a.Annualized(report.CumulativeReturn, report.Years)
	report.Sharpe = a.Sharpe(series.Returns())
	report.Sortino = a.Sortino(series.Returns())
	report.MaxDrawdown = MaxDrawdown(series)

	report.LongCumulative = finalCumulative(long)
	report.ShortCumulative = finalCumulative(short)

	if len(snapshots) > 0 {
		latest := snapshots[len(snapshots)-1]
		report.LongHHI = latest.Long.HHI()
		report.ShortHHI = latest.Short.HHI()
		report.HHI = combineHHI(report.LongHHI, report.ShortHHI)
	}

	return report
}

// Cumulative compounds the series: cumulative[t] =
// (1+cumulative[t-1])*(1+return[t]) - 1.
func Cumulative(series contracts.ReturnSeries) []float64 {
	out := make([]float64, len(series))
	acc := 1.0
	for i, p := range series {
		acc *= 1 + p.Return
		out[i] = acc - 1
	}
	return out
}

func finalCumulative(series contracts.ReturnSeries) contracts.Metric {
	if len(series) == 0 {
		return contracts.Undefined()
	}
	cum := Cumulative(series)
	return contracts.Defined(cum[len(cum)-1])
}

// Annualized converts a cumulative return over the elapsed years into
// a yearly rate. Zero years yields zero rather than an error.
func (a *Analyzer) Annualized(cumulative contracts.Metric, years float64) contracts.Metric {
	if !cumulative.Valid {
		return contracts.Undefined()
	}
	if years <= 0 {
		return contracts.Defined(0)
	}
	return contracts.Defined(math.Pow(1+cumulative.Value, 1/years) - 1)
}

// Sharpe is mean over stdev, annualized. A zero or undefined stdev
// yields zero: identical returns carry no measurable risk premium
// noise, which is a valid zero, not missing data.
func (a *Analyzer) Sharpe(returns []float64) contracts.Metric {
	if len(returns) == 0 {
		return contracts.Undefined()
	}
	std, ok := stdev(returns)
	if !ok || std == 0 {
		return contracts.Defined(0)
	}
	return contracts.Defined(mean(returns) / std * math.Sqrt(a.periodsPerYear))
}

// Sortino divides the mean return by the downside deviation, computed
// from negative periods only. With no negative period, or a zero
// downside deviation, the ratio is undefined: "no downside observed"
// must stay distinct from "zero downside risk".
func (a *Analyzer) Sortino(returns []float64) contracts.Metric {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return contracts.Undefined()
	}
	std, ok := stdev(downside)
	if !ok || std == 0 {
		return contracts.Undefined()
	}
	return contracts.Defined(mean(returns) / std * math.Sqrt(a.periodsPerYear))
}

// MaxDrawdown is the deepest peak-to-trough fall of the compounded
// wealth index: min over t of (wealth_t - peak_t) / peak_t. The
// running peak starts at the first observation, so a series that
// opens with a loss has no drawdown until a later peak is given back.
func MaxDrawdown(series contracts.ReturnSeries) contracts.Metric {
	if len(series) == 0 {
		return contracts.Undefined()
	}
	wealth := 1 + series[0].Return
	peak := wealth
	worst := 0.0
	for _, p := range series[1:] {
		wealth *= 1 + p.Return
		if wealth > peak {
			peak = wealth
		}
		dd := (wealth - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return contracts.Defined(worst)
}

func combineHHI(long, short contracts.Metric) contracts.Metric {
	switch {
	case long.Valid && short.Valid:
		return contracts.Defined((long.Value + short.Value) / 2)
	case long.Valid:
		return long
	case short.Valid:
		return short
	default:
		return contracts.Undefined()
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation; undefined below two
// observations.
func stdev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1)), true
}
