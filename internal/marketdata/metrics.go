package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/httputil"
	"github.com/quantfoundry/factors/pkg/logger"
)

// symbolBatchSize keeps each metrics request under the provider's
// per-request asset limit.
const symbolBatchSize = 5

// MetricsClient fetches fundamental on-chain metrics (market cap,
// fees, DAU, revenue) from the metrics provider and pivots the
// (date, asset, metric, value) records into panel columns.
type MetricsClient struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

// NewMetricsClient creates a metrics provider client.
func NewMetricsClient(http *httputil.Client, baseURL, apiKey string, log *logger.Logger) *MetricsClient {
	return &MetricsClient{http: http, baseURL: baseURL, apiKey: apiKey, log: log}
}

type metricsResponse struct {
	Data struct {
		Symbols map[string]map[string][]struct {
			Date string  `json:"date"`
			Val  float64 `json:"val"`
		} `json:"symbols"`
	} `json:"data"`
}

// Fetch retrieves the given metrics for all symbols over the date
// range, batching symbols per request. A failing batch is logged and
// skipped so one bad symbol cannot sink the whole panel; the failed
// symbols are returned alongside the data.
func (m *MetricsClient) Fetch(ctx context.Context, metrics, symbols []string, start, end time.Time) (contracts.Panel, []string, error) {
	byKey := make(map[string]map[string]float64)
	var failed []string

	for i := 0; i < len(symbols); i += symbolBatchSize {
		j := i + symbolBatchSize
		if j > len(symbols) {
			j = len(symbols)
		}
		batch := symbols[i:j]

		resp, err := m.fetchBatch(ctx, metrics, batch, start, end)
		if err != nil {
			m.log.WithField("symbols", batch).WithError(err).Warn("Metrics batch failed, skipping")
			failed = append(failed, batch...)
			continue
		}

		for asset, metricValues := range resp.Data.Symbols {
			for metric, points := range metricValues {
				for _, point := range points {
					if _, err := time.Parse("2006-01-02", point.Date); err != nil {
						continue
					}
					key := point.Date + "/" + asset
					if byKey[key] == nil {
						byKey[key] = map[string]float64{}
					}
					byKey[key][metric] = point.Val
				}
			}
		}
	}

	out := pivot(byKey)
	if len(out) == 0 {
		return nil, failed, fmt.Errorf("no data returned from metrics provider, verify API key, metric names and date range")
	}
	return out, failed, nil
}

func (m *MetricsClient) fetchBatch(ctx context.Context, metrics, symbols []string, start, end time.Time) (*metricsResponse, error) {
	params := url.Values{}
	params.Set("metricNames", strings.Join(metrics, ","))
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("startDate", start.Format("2006-01-02"))
	params.Set("endDate", end.Format("2006-01-02"))
	params.Set("APIKey", m.apiKey)

	resp, err := m.http.Get(ctx, fmt.Sprintf("%s/data?%s", m.baseURL, params.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("metrics provider: unexpected status %d", resp.StatusCode)
	}

	var body metricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode metrics response: %w", err)
	}
	return &body, nil
}

func pivot(byKey map[string]map[string]float64) contracts.Panel {
	var out contracts.Panel
	for key, cols := range byKey {
		parts := strings.SplitN(key, "/", 2)
		date, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			continue
		}
		out = append(out, contracts.PanelRow{Date: date, Asset: parts[1], Cols: cols})
	}
	out.SortByDateAsset()
	return out
}
