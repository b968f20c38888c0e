package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

// Loader assembles the merged (date, asset) panel the engine runs on:
// prices and volume from Coinbase joined with fundamental metrics
// from the metrics provider.
type Loader struct {
	coinbase  *CoinbaseClient
	metrics   *MetricsClient
	symbols   []string
	symbolMap map[string]string
	log       *logger.Logger
}

// NewLoader creates a panel loader over the given asset universe.
func NewLoader(coinbase *CoinbaseClient, metrics *MetricsClient, symbols []string, symbolMap map[string]string, log *logger.Logger) *Loader {
	if symbolMap == nil {
		symbolMap = DefaultSymbolMap
	}
	return &Loader{
		coinbase:  coinbase,
		metrics:   metrics,
		symbols:   symbols,
		symbolMap: symbolMap,
		log:       log,
	}
}

// LoadPanel fetches prices and the requested metric columns over the
// date range and inner-joins them on (date, asset).
func (l *Loader) LoadPanel(ctx context.Context, metricNames []string, start, end time.Time) (contracts.Panel, error) {
	prices, err := l.coinbase.PriceVolume(ctx, l.symbols, l.symbolMap, start, end)
	if err != nil {
		return nil, fmt.Errorf("load price panel: %w", err)
	}

	metrics, failed, err := l.metrics.Fetch(ctx, metricNames, l.symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("load metrics panel: %w", err)
	}
	if len(failed) > 0 {
		l.log.WithField("symbols", failed).Warn("Some symbols missing from metrics panel")
	}

	merged := InnerMerge(prices, metrics)
	l.log.WithFields(map[string]interface{}{
		"price_rows":  len(prices),
		"metric_rows": len(metrics),
		"merged_rows": len(merged),
	}).Info("Panel loaded")
	return merged, nil
}
