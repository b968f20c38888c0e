package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(date time.Time, asset string, cols map[string]float64) contracts.PanelRow {
	return contracts.PanelRow{Date: date, Asset: asset, Cols: cols}
}

func TestWeeklyBucketEnd(t *testing.T) {
	// 2024-01-07 is a Sunday
	sunday := day(2024, 1, 7)
	assert.Equal(t, sunday, Weekly.BucketEnd(sunday))
	assert.Equal(t, sunday, Weekly.BucketEnd(day(2024, 1, 1))) // Monday
	assert.Equal(t, sunday, Weekly.BucketEnd(day(2024, 1, 6))) // Saturday
	assert.Equal(t, day(2024, 1, 14), Weekly.BucketEnd(day(2024, 1, 8)))
}

func TestResampleWeekly(t *testing.T) {
	prep := NewPreparer(logger.NewNop())

	in := contracts.Panel{
		row(day(2024, 1, 1), "BTC", map[string]float64{contracts.ColPrice: 100, contracts.ColVolume: 10}),
		row(day(2024, 1, 3), "BTC", map[string]float64{contracts.ColPrice: 105, contracts.ColVolume: 20}),
		row(day(2024, 1, 7), "BTC", map[string]float64{contracts.ColPrice: 110, contracts.ColVolume: 30}),
		row(day(2024, 1, 8), "BTC", map[string]float64{contracts.ColPrice: 120, contracts.ColVolume: 40}),
		row(day(2024, 1, 3), "ETH", map[string]float64{contracts.ColPrice: 2000, contracts.ColVolume: 5}),
	}

	out := prep.Resample(in, Weekly, nil)
	require.Len(t, out, 3)

	// input untouched
	assert.Len(t, in, 5)
	assert.Equal(t, day(2024, 1, 1), in[0].Date)

	// (date, asset) sorted: week1 BTC, week1 ETH, week2 BTC
	assert.Equal(t, day(2024, 1, 7), out[0].Date)
	assert.Equal(t, "BTC", out[0].Asset)
	assert.Equal(t, 110.0, out[0].Cols[contracts.ColPrice]) // last
	assert.Equal(t, 60.0, out[0].Cols[contracts.ColVolume]) // sum

	assert.Equal(t, "ETH", out[1].Asset)
	assert.Equal(t, 2000.0, out[1].Cols[contracts.ColPrice])

	assert.Equal(t, day(2024, 1, 14), out[2].Date)
	assert.Equal(t, 120.0, out[2].Cols[contracts.ColPrice])
}

func TestPctChangePerAsset(t *testing.T) {
	prep := NewPreparer(logger.NewNop())

	in := contracts.Panel{
		row(day(2024, 1, 7), "BTC", map[string]float64{contracts.ColPrice: 100}),
		row(day(2024, 1, 14), "BTC", map[string]float64{contracts.ColPrice: 110}),
		row(day(2024, 1, 21), "BTC", map[string]float64{contracts.ColPrice: 99}),
		row(day(2024, 1, 14), "ETH", map[string]float64{contracts.ColPrice: 2000}),
		row(day(2024, 1, 21), "ETH", map[string]float64{contracts.ColPrice: 2100}),
	}

	out := prep.PctChange(in, contracts.ColPrice, 1)
	col := contracts.PctChangeColumn(contracts.ColPrice, 1)

	byKey := make(map[string]contracts.PanelRow)
	for _, r := range out {
		byKey[r.Date.Format("2006-01-02")+"/"+r.Asset] = r
	}

	// first observation per asset stays undefined
	_, ok := byKey["2024-01-07/BTC"].Value(col)
	assert.False(t, ok)
	_, ok = byKey["2024-01-14/ETH"].Value(col)
	assert.False(t, ok)

	v, ok := byKey["2024-01-14/BTC"].Value(col)
	require.True(t, ok)
	assert.InDelta(t, 0.10, v, 1e-12)

	v, ok = byKey["2024-01-21/BTC"].Value(col)
	require.True(t, ok)
	assert.InDelta(t, -0.10, v, 1e-12)

	v, ok = byKey["2024-01-21/ETH"].Value(col)
	require.True(t, ok)
	assert.InDelta(t, 0.05, v, 1e-12)
}

func TestPctChangeMultiPeriod(t *testing.T) {
	prep := NewPreparer(logger.NewNop())

	in := contracts.Panel{
		row(day(2024, 1, 7), "BTC", map[string]float64{contracts.ColPrice: 100}),
		row(day(2024, 1, 14), "BTC", map[string]float64{contracts.ColPrice: 105}),
		row(day(2024, 1, 21), "BTC", map[string]float64{contracts.ColPrice: 120}),
	}

	out := prep.PctChange(in, contracts.ColPrice, 2)
	col := contracts.PctChangeColumn(contracts.ColPrice, 2)

	_, ok := out[0].Value(col)
	assert.False(t, ok)
	_, ok = out[1].Value(col)
	assert.False(t, ok)

	v, ok := out[2].Value(col)
	require.True(t, ok)
	assert.InDelta(t, 0.20, v, 1e-12)
}

func TestLagShiftsPerAsset(t *testing.T) {
	prep := NewPreparer(logger.NewNop())

	in := contracts.Panel{
		row(day(2024, 1, 7), "BTC", map[string]float64{contracts.ColMarketCap: 800}),
		row(day(2024, 1, 14), "BTC", map[string]float64{contracts.ColMarketCap: 850}),
		row(day(2024, 1, 14), "ETH", map[string]float64{contracts.ColMarketCap: 300}),
	}

	out := prep.Lag(in, contracts.ColMarketCap)
	lagged := contracts.Lagged(contracts.ColMarketCap)

	// first row per asset has no lag
	_, ok := out[0].Value(lagged)
	assert.False(t, ok)
	_, ok = out[2].Value(lagged)
	assert.False(t, ok)

	v, ok := out[1].Value(lagged)
	require.True(t, ok)
	assert.Equal(t, 800.0, v)
}

func TestVarianceColumns(t *testing.T) {
	prep := NewPreparer(logger.NewNop())
	retCol := contracts.PctChangeColumn(contracts.ColPrice, 1)

	in := contracts.Panel{
		// BTC has three defined returns with spread
		row(day(2024, 1, 7), "BTC", map[string]float64{retCol: 0.10}),
		row(day(2024, 1, 14), "BTC", map[string]float64{retCol: -0.05}),
		row(day(2024, 1, 21), "BTC", map[string]float64{retCol: 0.02}),
		// ETH has one defined return, variance undefined
		row(day(2024, 1, 21), "ETH", map[string]float64{retCol: 0.01}),
		// stable coin with identical returns, zero variance
		row(day(2024, 1, 7), "USDC", map[string]float64{retCol: 0.0}),
		row(day(2024, 1, 14), "USDC", map[string]float64{retCol: 0.0}),
	}

	out := prep.Variance(in)

	byAsset := make(map[string]contracts.PanelRow)
	for _, r := range out {
		byAsset[r.Asset] = r
	}

	v, ok := byAsset["BTC"].Value(contracts.ColVariance)
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
	iv, ok := byAsset["BTC"].Value(contracts.ColInverseVariance)
	require.True(t, ok)
	assert.InDelta(t, 1/v, iv, 1e-12)

	_, ok = byAsset["ETH"].Value(contracts.ColVariance)
	assert.False(t, ok)

	// zero variance gets no inverse-variance weight
	zv, ok := byAsset["USDC"].Value(contracts.ColVariance)
	require.True(t, ok)
	assert.Equal(t, 0.0, zv)
	_, ok = byAsset["USDC"].Value(contracts.ColInverseVariance)
	assert.False(t, ok)
}

func TestSampleVariance(t *testing.T) {
	v, ok := sampleVariance([]float64{1, 2, 3, 4})
	require.True(t, ok)
	assert.InDelta(t, 5.0/3.0, v, 1e-12)

	_, ok = sampleVariance([]float64{1})
	assert.False(t, ok)
}
