package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/httputil"
	"github.com/quantfoundry/factors/pkg/logger"
	"github.com/quantfoundry/factors/pkg/redis"
)

const (
	maxCandlesPerRequest = 300
	granularityOneDay    = "ONE_DAY"
)

// Candle is one daily OHLCV bar.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// CoinbaseClient fetches daily candles from the Coinbase Advanced
// Trade public market data API. Requests are paced by a local token
// bucket and retried by the underlying HTTP client.
type CoinbaseClient struct {
	http    *httputil.Client
	baseURL string
	limiter *rate.Limiter
	cache   *redis.Cache
	log     *logger.Logger
}

// NewCoinbaseClient creates a Coinbase market data client. cache may
// be nil or disabled; candle responses are then fetched every time.
func NewCoinbaseClient(http *httputil.Client, baseURL string, requestsPerSec float64, cache *redis.Cache, log *logger.Logger) *CoinbaseClient {
	return &CoinbaseClient{
		http:    http,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		cache:   cache,
		log:     log,
	}
}

type candlesResponse struct {
	Candles []struct {
		Start  string `json:"start"`
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	} `json:"candles"`
}

// Candles fetches daily candles for one product over [start, end],
// paginating in windows of 300 days. A window that keeps failing
// after retries is logged and skipped; the remaining windows still
// load.
func (c *CoinbaseClient) Candles(ctx context.Context, productID string, start, end time.Time) ([]Candle, error) {
	cacheKey := redis.CandleKey(productID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if c.cache != nil {
		var cached []Candle
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	var all []Candle
	for windowStart := start; windowStart.Before(end) || windowStart.Equal(end); {
		windowEnd := windowStart.AddDate(0, 0, maxCandlesPerRequest-1)
		if windowEnd.After(end) {
			windowEnd = end
		}

		candles, err := c.fetchWindow(ctx, productID, windowStart, windowEnd)
		if err != nil {
			c.log.WithFields(map[string]interface{}{
				"product": productID,
				"start":   windowStart.Format("2006-01-02"),
				"end":     windowEnd.Format("2006-01-02"),
			}).WithError(err).Warn("Candle window failed, skipping")
		} else {
			all = append(all, candles...)
		}

		windowStart = windowEnd.AddDate(0, 0, 1)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	all = dedupeByDate(all)

	if c.cache != nil && len(all) > 0 {
		if err := c.cache.Set(ctx, cacheKey, all, redis.TTLDaily); err != nil {
			c.log.WithError(err).Debug("Candle cache write failed")
		}
	}
	return all, nil
}

func (c *CoinbaseClient) fetchWindow(ctx context.Context, productID string, start, end time.Time) ([]Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("start", strconv.FormatInt(start.Unix(), 10))
	params.Set("end", strconv.FormatInt(end.Unix(), 10))
	params.Set("granularity", granularityOneDay)

	reqURL := fmt.Sprintf("%s/products/%s/candles?%s", c.baseURL, productID, params.Encode())
	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("coinbase candles: unexpected status %d", resp.StatusCode)
	}

	var body candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode candles response: %w", err)
	}

	candles := make([]Candle, 0, len(body.Candles))
	for _, raw := range body.Candles {
		ts, err := strconv.ParseInt(raw.Start, 10, 64)
		if err != nil {
			continue
		}
		candles = append(candles, Candle{
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   parseFloat(raw.Open),
			High:   parseFloat(raw.High),
			Low:    parseFloat(raw.Low),
			Close:  parseFloat(raw.Close),
			Volume: parseFloat(raw.Volume),
		})
	}
	return candles, nil
}

// PriceVolume batch-fetches price and volume for the given symbols
// and shapes them as panel rows. symbolMap translates panel asset
// slugs into Coinbase product IDs; unmapped symbols are logged and
// skipped.
func (c *CoinbaseClient) PriceVolume(ctx context.Context, symbols []string, symbolMap map[string]string, start, end time.Time) (contracts.Panel, error) {
	var out contracts.Panel
	var unmapped []string

	for _, symbol := range symbols {
		productID, ok := symbolMap[symbol]
		if !ok {
			unmapped = append(unmapped, symbol)
			continue
		}

		candles, err := c.Candles(ctx, productID, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
		}

		for _, candle := range candles {
			out = append(out, contracts.PanelRow{
				Date:  candle.Date,
				Asset: symbol,
				Cols: map[string]float64{
					contracts.ColPrice:  candle.Close,
					contracts.ColVolume: candle.Volume,
				},
			})
		}
	}

	if len(unmapped) > 0 {
		c.log.WithField("symbols", unmapped).Info("Symbols without a Coinbase product mapping")
	}

	out.SortByDateAsset()
	return out, nil
}

func dedupeByDate(candles []Candle) []Candle {
	out := candles[:0]
	var last time.Time
	for i, c := range candles {
		if i > 0 && c.Date.Equal(last) {
			continue
		}
		out = append(out, c)
		last = c.Date
	}
	return out
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
