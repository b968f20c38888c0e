package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfoundry/factors/internal/contracts"
)

func weeklySeries(start time.Time, returns ...float64) contracts.ReturnSeries {
	var s contracts.ReturnSeries
	for i, r := range returns {
		s = s.Append(start.AddDate(0, 0, 7*i), r)
	}
	return s
}

func TestCumulativeRecurrence(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(start, 0.10, -0.05, 0.02, 0.07)

	cum := Cumulative(series)
	require.Len(t, cum, 4)

	// cumulative[t] = (1+cumulative[t-1])*(1+return[t]) - 1
	prev := 0.0
	for i, p := range series {
		want := (1+prev)*(1+p.Return) - 1
		assert.InDelta(t, want, cum[i], 1e-12)
		prev = cum[i]
	}
	assert.InDelta(t, 1.10*0.95*1.02*1.07-1, cum[3], 1e-12)
}

func TestAnnualized(t *testing.T) {
	a := NewAnalyzer(52)

	// one year doubles: annualized equals cumulative
	got := a.Annualized(contracts.Defined(1.0), 1.0)
	require.True(t, got.Valid)
	assert.InDelta(t, 1.0, got.Value, 1e-12)

	// two years: sqrt relationship
	got = a.Annualized(contracts.Defined(0.21), 2.0)
	require.True(t, got.Valid)
	assert.InDelta(t, 0.1, got.Value, 1e-9)

	// zero elapsed time reports zero, not an error
	got = a.Annualized(contracts.Defined(0.5), 0)
	require.True(t, got.Valid)
	assert.Equal(t, 0.0, got.Value)
}

func TestSharpeZeroVariance(t *testing.T) {
	a := NewAnalyzer(52)

	// identical returns: Sharpe is a defined zero, not undefined
	got := a.Sharpe([]float64{0.02, 0.02, 0.02, 0.02})
	require.True(t, got.Valid)
	assert.Equal(t, 0.0, got.Value)
}

func TestSharpeKnownValue(t *testing.T) {
	a := NewAnalyzer(52)

	returns := []float64{0.01, 0.03}
	// mean 0.02, sample stdev sqrt(2)*0.01
	got := a.Sharpe(returns)
	require.True(t, got.Valid)
	assert.InDelta(t, 0.02/0.0141421356*7.2111025509, got.Value, 1e-6)
}

func TestSortinoUndefinedWithoutDownside(t *testing.T) {
	a := NewAnalyzer(52)

	// no negative period: undefined, not zero
	assert.False(t, a.Sortino([]float64{0.01, 0.02, 0.0}).Valid)

	// single negative period: downside stdev undefined
	assert.False(t, a.Sortino([]float64{0.05, -0.02, 0.01}).Valid)

	// two distinct negative periods give a defined ratio
	got := a.Sortino([]float64{0.05, -0.02, -0.06, 0.04})
	assert.True(t, got.Valid)
}

func TestMaxDrawdown(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	// wealth path 1.1, 0.88, 0.968: trough is -20% off the 1.1 peak
	series := weeklySeries(start, 0.10, -0.20, 0.10)
	got := MaxDrawdown(series)
	require.True(t, got.Valid)
	assert.InDelta(t, -0.20, got.Value, 1e-12)

	// monotonic climb never draws down
	flat := MaxDrawdown(weeklySeries(start, 0.01, 0.02, 0.03))
	require.True(t, flat.Valid)
	assert.Equal(t, 0.0, flat.Value)
}

func TestMaxDrawdownOpeningLoss(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	// the peak starts at the first observation, so a series that opens
	// below 1 and then recovers has no drawdown
	got := MaxDrawdown(weeklySeries(start, -0.10, 0.05))
	require.True(t, got.Valid)
	assert.Equal(t, 0.0, got.Value)

	// a loss after the opening observation still counts against it
	got = MaxDrawdown(weeklySeries(start, -0.10, -0.05, 0.02))
	require.True(t, got.Valid)
	assert.InDelta(t, -0.05, got.Value, 1e-12)
}

func TestReportDeterminism(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(start, 0.10, -0.05, 0.02, -0.03, 0.07)
	long := weeklySeries(start, 0.12, -0.01, 0.03, -0.02, 0.08)
	short := weeklySeries(start, 0.02, 0.04, 0.01, 0.01, 0.01)
	snaps := []contracts.PortfolioSnapshot{
		{
			Date:  start.AddDate(0, 0, 28),
			Long:  contracts.Leg{"BTC": {Weight: 0.6, PeriodReturn: 0.1}, "ETH": {Weight: 0.4, PeriodReturn: 0.05}},
			Short: contracts.Leg{"DOGE": {Weight: 1.0, PeriodReturn: 0.01}},
		},
	}

	a := NewAnalyzer(52)
	r1 := a.Report("momentum", series, long, short, snaps)
	r2 := a.Report("momentum", series, long, short, snaps)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 5, r1.Periods)
	assert.InDelta(t, 28.0/365.0, r1.Years, 1e-12)

	// HHI: long 0.36+0.16, short 1.0, combined mean
	assert.InDelta(t, 0.52, r1.LongHHI.Value, 1e-12)
	assert.InDelta(t, 1.0, r1.ShortHHI.Value, 1e-12)
	assert.InDelta(t, 0.76, r1.HHI.Value, 1e-12)
}

func TestReportLongOnlyHHI(t *testing.T) {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(start, 0.02, 0.01)
	snaps := []contracts.PortfolioSnapshot{
		{Date: start.AddDate(0, 0, 7), Long: contracts.Leg{"BTC": {Weight: 1.0}}},
	}

	r := NewAnalyzer(52).Report("market", series, series, nil, snaps)
	assert.False(t, r.ShortHHI.Valid)
	assert.InDelta(t, 1.0, r.HHI.Value, 1e-12)
	assert.False(t, r.ShortCumulative.Valid)
}

func TestAttribute(t *testing.T) {
	date := time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC)
	snap := contracts.PortfolioSnapshot{
		Date:  date,
		Long:  contracts.Leg{"BTC": {Weight: 0.5, PeriodReturn: 0.10}, "ETH": {Weight: 0.5, PeriodReturn: 0.02}},
		Short: contracts.Leg{"DOGE": {Weight: 1.0, PeriodReturn: -0.30}},
	}

	attr := Attribute(snap)
	require.Len(t, attr.Contributions, 3)

	// short contribution flips sign: -1.0 * -0.30 = +0.30
	top, ok := attr.TopContributor()
	require.True(t, ok)
	assert.Equal(t, "DOGE", top.Asset)
	assert.Equal(t, "short", top.Side)
	assert.InDelta(t, 0.30, top.Contribution, 1e-12)

	assert.InDelta(t, 0.05+0.01+0.30, attr.Total, 1e-12)

	// sorted by absolute contribution descending
	assert.Equal(t, "DOGE", attr.Contributions[0].Asset)
	assert.Equal(t, "BTC", attr.Contributions[1].Asset)
}

func TestAttributeEmpty(t *testing.T) {
	attr := Attribute(contracts.PortfolioSnapshot{})
	_, ok := attr.TopContributor()
	assert.False(t, ok)
	assert.Empty(t, attr.Contributions)
}
