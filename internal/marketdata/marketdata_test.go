package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/config"
	"github.com/quantfoundry/factors/pkg/httputil"
	"github.com/quantfoundry/factors/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testHTTPClient() *httputil.Client {
	return httputil.New(&config.Config{}, logger.NewNop()).DisableRetry()
}

func TestCoinbaseCandles(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Contains(t, r.URL.Path, "/products/BTC-USD/candles")
		assert.Equal(t, "ONE_DAY", r.URL.Query().Get("granularity"))

		resp := map[string]interface{}{
			"candles": []map[string]string{
				{"start": fmt.Sprint(day(2024, 1, 2).Unix()), "open": "42000", "high": "43000", "low": "41000", "close": "42500", "volume": "120.5"},
				{"start": fmt.Sprint(day(2024, 1, 1).Unix()), "open": "41000", "high": "42100", "low": "40900", "close": "42000", "volume": "98.2"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewCoinbaseClient(testHTTPClient(), server.URL, 100, nil, logger.NewNop())
	candles, err := client.Candles(context.Background(), "BTC-USD", day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, err)

	// one window, sorted ascending, deduplicated
	assert.Equal(t, 1, requests)
	require.Len(t, candles, 2)
	assert.Equal(t, day(2024, 1, 1), candles[0].Date)
	assert.Equal(t, 42000.0, candles[0].Close)
	assert.Equal(t, 120.5, candles[1].Volume)
}

func TestCoinbaseCandlesPagination(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(map[string]interface{}{"candles": []map[string]string{}})
	}))
	defer server.Close()

	client := NewCoinbaseClient(testHTTPClient(), server.URL, 100, nil, logger.NewNop())

	// 600 days of range needs two 300-day windows
	_, err := client.Candles(context.Background(), "BTC-USD", day(2022, 1, 1), day(2023, 8, 23))
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestCoinbasePriceVolumeSkipsUnmapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candles": []map[string]string{
				{"start": fmt.Sprint(day(2024, 1, 1).Unix()), "open": "1", "high": "1", "low": "1", "close": "42000", "volume": "10"},
			},
		})
	}))
	defer server.Close()

	client := NewCoinbaseClient(testHTTPClient(), server.URL, 100, nil, logger.NewNop())
	p, err := client.PriceVolume(context.Background(),
		[]string{"bitcoin", "obscurecoin"},
		map[string]string{"bitcoin": "BTC-USD"},
		day(2024, 1, 1), day(2024, 1, 1))
	require.NoError(t, err)

	require.Len(t, p, 1)
	assert.Equal(t, "bitcoin", p[0].Asset)
	assert.Equal(t, 42000.0, p[0].Cols[contracts.ColPrice])
	assert.Equal(t, 10.0, p[0].Cols[contracts.ColVolume])
}

func TestMetricsFetchPivots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mc,fees", r.URL.Query().Get("metricNames"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"symbols": map[string]interface{}{
					"bitcoin": map[string]interface{}{
						"mc":   []map[string]interface{}{{"date": "2024-01-01", "val": 800e9}},
						"fees": []map[string]interface{}{{"date": "2024-01-01", "val": 3.5e6}},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewMetricsClient(testHTTPClient(), server.URL, "test-key", logger.NewNop())
	p, failed, err := client.Fetch(context.Background(), []string{"mc", "fees"}, []string{"bitcoin"}, day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, err)
	assert.Empty(t, failed)

	require.Len(t, p, 1)
	assert.Equal(t, "bitcoin", p[0].Asset)
	assert.Equal(t, 800e9, p[0].Cols["mc"])
	assert.Equal(t, 3.5e6, p[0].Cols["fees"])
}

func TestMetricsFetchAllBatchesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewMetricsClient(testHTTPClient(), server.URL, "test-key", logger.NewNop())
	_, failed, err := client.Fetch(context.Background(), []string{"mc"}, []string{"bitcoin", "ethereum"}, day(2024, 1, 1), day(2024, 1, 2))
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"bitcoin", "ethereum"}, failed)
}

func TestInnerMerge(t *testing.T) {
	d := day(2024, 1, 1)
	price := contracts.Panel{
		{Date: d, Asset: "bitcoin", Cols: map[string]float64{contracts.ColPrice: 42000}},
		{Date: d, Asset: "orphan", Cols: map[string]float64{contracts.ColPrice: 1}},
	}
	metrics := contracts.Panel{
		{Date: d, Asset: "bitcoin", Cols: map[string]float64{contracts.ColMarketCap: 800e9}},
	}

	merged := InnerMerge(price, metrics)
	require.Len(t, merged, 1)
	assert.Equal(t, 42000.0, merged[0].Cols[contracts.ColPrice])
	assert.Equal(t, 800e9, merged[0].Cols[contracts.ColMarketCap])

	// inputs untouched
	assert.Len(t, price[0].Cols, 1)
}

func TestOuterMergeKeepsUnion(t *testing.T) {
	d := day(2024, 1, 1)
	a := contracts.Panel{{Date: d, Asset: "bitcoin", Cols: map[string]float64{contracts.ColPrice: 42000}}}
	b := contracts.Panel{{Date: d, Asset: "ethereum", Cols: map[string]float64{contracts.ColPrice: 2400}}}

	merged := OuterMerge(a, b)
	assert.Len(t, merged, 2)
}

func TestEquityDailyCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol": "AAPL",
			"prices": []map[string]interface{}{
				{"date": "2024-01-02", "close": 185.5},
				{"date": "2024-01-03", "close": 184.2},
			},
		})
	}))
	defer server.Close()

	client := NewEquityClient(testHTTPClient(), server.URL, logger.NewNop())
	p, err := client.DailyCloses(context.Background(), "AAPL", day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)

	require.Len(t, p, 2)
	assert.Equal(t, 185.5, p[0].Cols[contracts.ColPrice])
}
