package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/httputil"
	"github.com/quantfoundry/factors/pkg/logger"
)

// EquityClient fetches daily closing prices for equity tickers from
// the equities price provider.
type EquityClient struct {
	http    *httputil.Client
	baseURL string
	log     *logger.Logger
}

// NewEquityClient creates an equity price client.
func NewEquityClient(http *httputil.Client, baseURL string, log *logger.Logger) *EquityClient {
	return &EquityClient{http: http, baseURL: baseURL, log: log}
}

type equityResponse struct {
	Symbol string `json:"symbol"`
	Prices []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"prices"`
}

// DailyCloses fetches a ticker's daily closes over [start, end] as
// panel rows.
func (e *EquityClient) DailyCloses(ctx context.Context, symbol string, start, end time.Time) (contracts.Panel, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("start", start.Format("2006-01-02"))
	params.Set("end", end.Format("2006-01-02"))

	resp, err := e.http.Get(ctx, fmt.Sprintf("%s/daily?%s", e.baseURL, params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch equity closes for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("equity provider: unexpected status %d for %s", resp.StatusCode, symbol)
	}

	var body equityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode equity response: %w", err)
	}

	var out contracts.Panel
	for _, p := range body.Prices {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		out = append(out, contracts.PanelRow{
			Date:  date,
			Asset: symbol,
			Cols:  map[string]float64{contracts.ColPrice: p.Close},
		})
	}
	out.SortByDateAsset()
	return out, nil
}
