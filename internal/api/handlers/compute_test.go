package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/performance"
)

func TestLatestAttribution(t *testing.T) {
	date := time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC)
	snapshots := []contracts.PortfolioSnapshot{
		{Date: date.AddDate(0, 0, -7), Long: contracts.Leg{"BTC": {Weight: 1.0, PeriodReturn: 0.5}}},
		{
			Date:  date,
			Long:  contracts.Leg{"BTC": {Weight: 0.5, PeriodReturn: 0.10}, "ETH": {Weight: 0.5, PeriodReturn: 0.02}},
			Short: contracts.Leg{"DOGE": {Weight: 1.0, PeriodReturn: -0.30}},
		},
	}

	out := latestAttribution(snapshots)
	require.NotNil(t, out)

	// only the most recent snapshot is attributed
	assert.Equal(t, "2024-02-04", out["date"])
	assert.InDelta(t, 0.05+0.01+0.30, out["total"].(float64), 1e-12)

	contributions := out["contributions"].([]performance.Contribution)
	require.Len(t, contributions, 3)

	top := out["top_contributor"].(performance.Contribution)
	assert.Equal(t, "DOGE", top.Asset)
	assert.Equal(t, "short", top.Side)
	assert.InDelta(t, 0.30, top.Contribution, 1e-12)
}

func TestLatestAttributionNoSnapshots(t *testing.T) {
	assert.Nil(t, latestAttribution(nil))
}
