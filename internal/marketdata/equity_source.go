package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/panel"
	"github.com/quantfoundry/factors/pkg/logger"
)

// EquityReturnSource adapts the equity price client into the return
// source the exposure estimator consumes, for regressing stock tickers
// against factor series.
type EquityReturnSource struct {
	client *EquityClient
	start  time.Time
	end    time.Time
	prep   *panel.Preparer
}

// NewEquityReturnSource creates an equity return source over [start, end].
func NewEquityReturnSource(client *EquityClient, start, end time.Time, log *logger.Logger) *EquityReturnSource {
	return &EquityReturnSource{
		client: client,
		start:  start,
		end:    end,
		prep:   panel.NewPreparer(log),
	}
}

// Returns fetches the ticker's daily closes and derives a weekly
// return series.
func (s *EquityReturnSource) Returns(ctx context.Context, symbol string) (contracts.ReturnSeries, error) {
	closes, err := s.client.DailyCloses(ctx, symbol, s.start, s.end)
	if err != nil {
		return nil, err
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("no closes returned for symbol %q", symbol)
	}

	weekly := s.prep.Resample(closes, panel.Weekly, panel.DefaultRules())
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

// LatestPrice returns the ticker's most recent close.
func (s *EquityReturnSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	closes, err := s.client.DailyCloses(ctx, symbol, s.start, s.end)
	if err != nil {
		return 0, err
	}
	if len(closes) == 0 {
		return 0, fmt.Errorf("no closes returned for symbol %q", symbol)
	}
	price, ok := closes[len(closes)-1].Value(contracts.ColPrice)
	if !ok {
		return 0, fmt.Errorf("no close price for symbol %q", symbol)
	}
	return price, nil
}
