package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/panel"
	"github.com/quantfoundry/factors/pkg/logger"
)

// PriceReturnSource adapts the Coinbase client into the return source
// the exposure estimator consumes: weekly returns and latest prices
// per asset, resolved through the symbol-to-product mapping.
type PriceReturnSource struct {
	client    *CoinbaseClient
	symbolMap map[string]string
	start     time.Time
	end       time.Time
	prep      *panel.Preparer
	log       *logger.Logger
}

// NewPriceReturnSource creates a return source covering [start, end].
func NewPriceReturnSource(client *CoinbaseClient, symbolMap map[string]string, start, end time.Time, log *logger.Logger) *PriceReturnSource {
	return &PriceReturnSource{
		client:    client,
		symbolMap: symbolMap,
		start:     start,
		end:       end,
		prep:      panel.NewPreparer(log),
		log:       log,
	}
}

// Returns fetches the asset's daily closes and derives a weekly
// return series.
func (s *PriceReturnSource) Returns(ctx context.Context, asset string) (contracts.ReturnSeries, error) {
	candles, err := s.candles(ctx, asset)
	if err != nil {
		return nil, err
	}

	raw := make(contracts.Panel, 0, len(candles))
	for _, c := range candles {
		raw = append(raw, contracts.PanelRow{
			Date:  c.Date,
			Asset: asset,
			Cols:  map[string]float64{contracts.ColPrice: c.Close},
		})
	}

	weekly := s.prep.Resample(raw, panel.Weekly, panel.DefaultRules())
	weekly = s.prep.PctChange(weekly, contracts.ColPrice, 1)

	retCol := contracts.PctChangeColumn(contracts.ColPrice, 1)
	var series contracts.ReturnSeries
	for _, row := range weekly {
		if v, ok := row.Value(retCol); ok {
			series = series.Append(row.Date, v)
		}
	}
	return series, nil
}

// LatestPrice returns the asset's most recent observed close.
func (s *PriceReturnSource) LatestPrice(ctx context.Context, asset string) (float64, error) {
	candles, err := s.candles(ctx, asset)
	if err != nil {
		return 0, err
	}
	return candles[len(candles)-1].Close, nil
}

func (s *PriceReturnSource) candles(ctx context.Context, asset string) ([]Candle, error) {
	productID, ok := s.symbolMap[asset]
	if !ok {
		return nil, fmt.Errorf("no product mapping for asset %q", asset)
	}
	candles, err := s.client.Candles(ctx, productID, s.start, s.end)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles returned for asset %q", asset)
	}
	return candles, nil
}
