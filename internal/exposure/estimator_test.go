package exposure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

type stubSource struct {
	returns map[string]contracts.ReturnSeries
	prices  map[string]float64
}

func (s *stubSource) Returns(_ context.Context, asset string) (contracts.ReturnSeries, error) {
	r, ok := s.returns[asset]
	if !ok {
		return nil, errors.New("asset not found")
	}
	return r, nil
}

func (s *stubSource) LatestPrice(_ context.Context, asset string) (float64, error) {
	p, ok := s.prices[asset]
	if !ok {
		return 0, errors.New("price not found")
	}
	return p, nil
}

func weeklySeries(n int, f func(i int) float64) contracts.ReturnSeries {
	start := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	var s contracts.ReturnSeries
	for i := 0; i < n; i++ {
		s = s.Append(start.AddDate(0, 0, 7*i), f(i))
	}
	return s
}

func TestAssetBetaKnownSlope(t *testing.T) {
	factor := weeklySeries(10, func(i int) float64 { return float64(i%5)*0.01 - 0.02 })
	// asset = 2*factor + 0.005 exactly
	source := &stubSource{
		returns: map[string]contracts.ReturnSeries{
			"BTC": weeklySeries(10, func(i int) float64 { return 2*(float64(i%5)*0.01-0.02) + 0.005 }),
		},
	}

	est := NewEstimator(source, 5, logger.NewNop())
	got, err := est.AssetBeta(context.Background(), "BTC", factor)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, got.Beta, 1e-9)
	assert.InDelta(t, 0.005, got.Alpha, 1e-9)
	assert.Equal(t, 10, got.Observations)
}

func TestAssetBetaInsufficientData(t *testing.T) {
	factor := weeklySeries(10, func(i int) float64 { return 0.01 })
	source := &stubSource{
		returns: map[string]contracts.ReturnSeries{
			"BTC": weeklySeries(10, func(i int) float64 { return 0.02 }),
		},
	}

	// 10 aligned observations against a floor of 52
	est := NewEstimator(source, 52, logger.NewNop())
	_, err := est.AssetBeta(context.Background(), "BTC", factor)
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestAssetBetaAlignsOnDate(t *testing.T) {
	factor := weeklySeries(8, func(i int) float64 { return float64(i) * 0.01 })
	// asset series misses the first three factor dates
	asset := weeklySeries(8, func(i int) float64 { return float64(i) * 0.02 })[3:]

	source := &stubSource{returns: map[string]contracts.ReturnSeries{"ETH": asset}}
	est := NewEstimator(source, 5, logger.NewNop())

	got, err := est.AssetBeta(context.Background(), "ETH", factor)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Observations)
	assert.InDelta(t, 2.0, got.Beta, 1e-9)
}

func TestAssetBetaLookupFailure(t *testing.T) {
	est := NewEstimator(&stubSource{}, 5, logger.NewNop())
	_, err := est.AssetBeta(context.Background(), "NOPE", weeklySeries(10, func(int) float64 { return 0 }))
	assert.Error(t, err)
}

func TestPortfolioBetaExcludesUnresolvableAssets(t *testing.T) {
	factor := weeklySeries(6, func(i int) float64 { return float64(i%3)*0.01 - 0.01 })
	source := &stubSource{
		returns: map[string]contracts.ReturnSeries{
			"BTC": weeklySeries(6, func(i int) float64 { return float64(i%3)*0.01 - 0.01 }),
		},
		prices: map[string]float64{"BTC": 50000, "GHOST": 10},
	}

	est := NewEstimator(source, 3, logger.NewNop())
	got, err := est.PortfolioBeta(context.Background(), map[string]float64{
		"BTC":   0.5,
		"GHOST": 100, // has a price but no return series
		"NOPE":  10,  // has neither
	}, factor)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"GHOST", "NOPE"}, got.Excluded)
	// the portfolio collapses to 100% BTC, beta 1 against itself
	assert.InDelta(t, 1.0, got.Beta, 1e-9)
}

func TestPortfolioBetaWeightsByValue(t *testing.T) {
	factor := weeklySeries(6, func(i int) float64 { return float64(i%3)*0.01 - 0.01 })
	source := &stubSource{
		returns: map[string]contracts.ReturnSeries{
			// BTC moves 1:1 with the factor, STABLE not at all
			"BTC":    weeklySeries(6, func(i int) float64 { return float64(i%3)*0.01 - 0.01 }),
			"STABLE": weeklySeries(6, func(i int) float64 { return 0 }),
		},
		prices: map[string]float64{"BTC": 100, "STABLE": 1},
	}

	est := NewEstimator(source, 3, logger.NewNop())
	// equal value in both: weights 0.5/0.5, portfolio beta 0.5
	got, err := est.PortfolioBeta(context.Background(), map[string]float64{
		"BTC":    1,
		"STABLE": 100,
	}, factor)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got.Beta, 1e-9)
	assert.Empty(t, got.Excluded)
}

func TestPortfolioBetaZeroValue(t *testing.T) {
	est := NewEstimator(&stubSource{}, 3, logger.NewNop())
	_, err := est.PortfolioBeta(context.Background(), map[string]float64{"NOPE": 5},
		weeklySeries(6, func(int) float64 { return 0.01 }))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrZeroPortfolioValue)
}
