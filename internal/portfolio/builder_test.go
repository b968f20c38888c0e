package portfolio

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

const (
	sigCol = "momentum_signal"
	retCol = "fwd_return"
)

func crossSection(signals map[string]float64) contracts.Panel {
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	var p contracts.Panel
	for asset, sig := range signals {
		p = append(p, contracts.PanelRow{
			Date:  date,
			Asset: asset,
			Cols:  map[string]float64{sigCol: sig, retCol: sig / 10},
		})
	}
	p.SortByDateAsset()
	return p
}

func builder(breakpoint float64, minAssets int, ascending bool) *Builder {
	cfg := contracts.RunConfig{
		Factor:     "momentum",
		Breakpoint: breakpoint,
		MinAssets:  minAssets,
		Weighting:  contracts.WeightEqual,
	}
	params := Params{
		SignalColumn: sigCol,
		ReturnColumn: retCol,
		Ascending:    ascending,
	}
	return NewBuilder(cfg, params, logger.NewNop())
}

func legAssets(leg contracts.Panel) []string {
	out := make([]string, 0, len(leg))
	for _, row := range leg {
		out = append(out, row.Asset)
	}
	return out
}

func TestBuildFloorSplit(t *testing.T) {
	// 7 assets at breakpoint 0.5: both legs get 3, the median asset
	// belongs to neither leg.
	signals := map[string]float64{}
	for i := 1; i <= 7; i++ {
		signals[fmt.Sprintf("A%d", i)] = float64(i)
	}

	a, ok := builder(0.5, 1, false).Build(time.Now(), crossSection(signals))
	require.True(t, ok)

	assert.ElementsMatch(t, []string{"A7", "A6", "A5"}, legAssets(a.Long))
	assert.ElementsMatch(t, []string{"A3", "A2", "A1"}, legAssets(a.Short))
}

func TestBuildSkipsBelowMinAssets(t *testing.T) {
	signals := map[string]float64{"A": 1, "B": 2}
	_, ok := builder(0.5, 3, false).Build(time.Now(), crossSection(signals))
	assert.False(t, ok)
}

func TestBuildSkipsZeroCutoff(t *testing.T) {
	// 2 assets at breakpoint 0.3: floor(2*0.3)=0
	signals := map[string]float64{"A": 1, "B": 2}
	_, ok := builder(0.3, 1, false).Build(time.Now(), crossSection(signals))
	assert.False(t, ok)
}

func TestBuildDropsRowsMissingSignalOrReturn(t *testing.T) {
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	cross := contracts.Panel{
		{Date: date, Asset: "FULL1", Cols: map[string]float64{sigCol: 3, retCol: 0.3}},
		{Date: date, Asset: "FULL2", Cols: map[string]float64{sigCol: 1, retCol: 0.1}},
		{Date: date, Asset: "NOSIG", Cols: map[string]float64{retCol: 0.2}},
		{Date: date, Asset: "NORET", Cols: map[string]float64{sigCol: 9}},
	}

	a, ok := builder(0.5, 1, false).Build(date, cross)
	require.True(t, ok)
	assert.Equal(t, []string{"FULL1"}, legAssets(a.Long))
	assert.Equal(t, []string{"FULL2"}, legAssets(a.Short))
}

func TestBuildAscendingRanksSmallFirst(t *testing.T) {
	signals := map[string]float64{"SMALL": 10, "MID": 500, "BIG": 9000}

	a, ok := builder(0.33, 1, true).Build(time.Now(), crossSection(signals))
	require.True(t, ok)
	assert.Equal(t, []string{"SMALL"}, legAssets(a.Long))
	assert.Equal(t, []string{"BIG"}, legAssets(a.Short))
}

func TestBuildLongOnlyWithLegCap(t *testing.T) {
	signals := map[string]float64{}
	for i := 1; i <= 5; i++ {
		signals[fmt.Sprintf("A%d", i)] = float64(i)
	}

	cfg := contracts.RunConfig{
		Factor:     "market",
		Breakpoint: 0.5,
		MinAssets:  1,
		Weighting:  contracts.WeightEqual,
	}
	params := Params{
		SignalColumn: sigCol,
		ReturnColumn: retCol,
		LongOnly:     true,
		LegSize:      3,
	}

	a, ok := NewBuilder(cfg, params, logger.NewNop()).Build(time.Now(), crossSection(signals))
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"A5", "A4", "A3"}, legAssets(a.Long))
	assert.Empty(t, a.Short)
}

func TestLegReturnEqualMatchesMean(t *testing.T) {
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	leg := contracts.Panel{
		{Date: date, Asset: "A", Cols: map[string]float64{retCol: 0.10}},
		{Date: date, Asset: "B", Cols: map[string]float64{retCol: 0.20}},
		{Date: date, Asset: "C", Cols: map[string]float64{retCol: -0.06}},
	}

	snap, ret, err := LegReturn(leg, contracts.WeightEqual, retCol)
	require.NoError(t, err)
	require.True(t, ret.Valid)
	assert.InDelta(t, 0.08, ret.Value, 1e-12)
	assert.InDelta(t, 1.0/3.0, snap["A"].Weight, 1e-12)
}

func TestLegReturnMarketCapWeighted(t *testing.T) {
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	mc := contracts.Lagged(contracts.ColMarketCap)
	leg := contracts.Panel{
		{Date: date, Asset: "BIG", Cols: map[string]float64{retCol: 0.10, mc: 900}},
		{Date: date, Asset: "SMALL", Cols: map[string]float64{retCol: -0.50, mc: 100}},
	}

	snap, ret, err := LegReturn(leg, contracts.WeightMarketCap, retCol)
	require.NoError(t, err)
	require.True(t, ret.Valid)
	assert.InDelta(t, 0.9*0.10+0.1*-0.50, ret.Value, 1e-12)
	assert.InDelta(t, 0.9, snap["BIG"].Weight, 1e-12)
}

func TestLegReturnSingleAssetDominance(t *testing.T) {
	// one asset holding 100% of leg market cap: leg return equals
	// that asset's return
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	mc := contracts.Lagged(contracts.ColMarketCap)
	leg := contracts.Panel{
		{Date: date, Asset: "WHALE", Cols: map[string]float64{retCol: 0.07, mc: 1000}},
		{Date: date, Asset: "GHOST", Cols: map[string]float64{retCol: -0.90}},
	}

	snap, ret, err := LegReturn(leg, contracts.WeightMarketCap, retCol)
	require.NoError(t, err)
	require.True(t, ret.Valid)
	assert.InDelta(t, 0.07, ret.Value, 1e-12)
	assert.NotContains(t, snap, "GHOST")
}

func TestLegReturnZeroTotalWeightUndefined(t *testing.T) {
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	leg := contracts.Panel{
		{Date: date, Asset: "A", Cols: map[string]float64{retCol: 0.10}},
	}

	snap, ret, err := LegReturn(leg, contracts.WeightMarketCap, retCol)
	require.NoError(t, err)
	assert.False(t, ret.Valid)
	assert.Nil(t, snap)
}

func TestLegReturnUnknownMethod(t *testing.T) {
	_, _, err := LegReturn(contracts.Panel{}, "volatility", retCol)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestLegReturnInverseVariance(t *testing.T) {
	date := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	iv := contracts.ColInverseVariance
	leg := contracts.Panel{
		{Date: date, Asset: "CALM", Cols: map[string]float64{retCol: 0.02, iv: 3}},
		{Date: date, Asset: "WILD", Cols: map[string]float64{retCol: 0.40, iv: 1}},
	}

	_, ret, err := LegReturn(leg, contracts.WeightInverseVariance, retCol)
	require.NoError(t, err)
	require.True(t, ret.Valid)
	assert.InDelta(t, 0.75*0.02+0.25*0.40, ret.Value, 1e-12)
}
