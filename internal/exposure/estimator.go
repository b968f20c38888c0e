package exposure

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/logger"
)

// DefaultMinObservations is the regression sample floor: one year of
// weekly data.
const DefaultMinObservations = 52

// ReturnSource supplies per-asset return series and latest prices for
// the regression side of the estimate. Implemented by the market data
// layer.
type ReturnSource interface {
	Returns(ctx context.Context, asset string) (contracts.ReturnSeries, error)
	LatestPrice(ctx context.Context, asset string) (float64, error)
}

// Estimator regresses asset or portfolio returns on a factor return
// series to estimate beta.
type Estimator struct {
	source ReturnSource
	minObs int
	log    *logger.Logger
}

// NewEstimator creates an estimator. minObs <= 0 applies the default
// floor.
func NewEstimator(source ReturnSource, minObs int, log *logger.Logger) *Estimator {
	if minObs <= 0 {
		minObs = DefaultMinObservations
	}
	return &Estimator{source: source, minObs: minObs, log: log}
}

// AssetBeta estimates a single asset's beta against the factor series.
func (e *Estimator) AssetBeta(ctx context.Context, asset string, factor contracts.ReturnSeries) (*contracts.BetaEstimate, error) {
	assetReturns, err := e.source.Returns(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("fetch returns for %s: %w", asset, err)
	}
	return e.regress(assetReturns, factor, nil)
}

// PortfolioBeta estimates the beta of a custom portfolio given as
// asset -> holding amount. Amounts are converted into value weights
// using each asset's latest price. Assets whose price or return
// series cannot be resolved are excluded and reported, not fatal; the
// estimate fails only when nothing can be priced.
func (e *Estimator) PortfolioBeta(ctx context.Context, holdings map[string]float64, factor contracts.ReturnSeries) (*contracts.BetaEstimate, error) {
	assets := make([]string, 0, len(holdings))
	for asset := range holdings {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	var excluded []string
	components := make(map[string]*component)
	totalValue := 0.0

	for _, asset := range assets {
		price, err := e.source.LatestPrice(ctx, asset)
		if err != nil || price <= 0 {
			e.log.WithField("asset", asset).WithError(err).Warn("Asset excluded from portfolio beta, price unavailable")
			excluded = append(excluded, asset)
			continue
		}
		returns, err := e.source.Returns(ctx, asset)
		if err != nil {
			e.log.WithField("asset", asset).WithError(err).Warn("Asset excluded from portfolio beta, returns unavailable")
			excluded = append(excluded, asset)
			continue
		}

		value := holdings[asset] * price
		components[asset] = &component{weight: value, returns: returns}
		totalValue += value
	}

	if totalValue == 0 {
		return nil, contracts.ErrZeroPortfolioValue
	}
	for _, c := range components {
		c.weight /= totalValue
	}

	// combine into one weighted series over the dates every kept
	// asset reported
	var combined contracts.ReturnSeries
	for _, date := range commonDates(components) {
		ret := 0.0
		for _, c := range components {
			r, _ := c.returns.At(date)
			ret += c.weight * r
		}
		combined = combined.Append(date, ret)
	}

	return e.regress(combined, factor, excluded)
}

// regress inner-aligns the two series on date and fits OLS with an
// intercept; the slope is the beta.
func (e *Estimator) regress(series, factor contracts.ReturnSeries, excluded []string) (*contracts.BetaEstimate, error) {
	var xs, ys []float64
	for _, p := range factor {
		if y, ok := series.At(p.Date); ok {
			xs = append(xs, p.Return)
			ys = append(ys, y)
		}
	}

	if len(xs) < e.minObs {
		return nil, fmt.Errorf("%w: %d aligned observations, need %d",
			contracts.ErrInsufficientData, len(xs), e.minObs)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return &contracts.BetaEstimate{
		Beta:         beta,
		Alpha:        alpha,
		Observations: len(xs),
		Excluded:     excluded,
	}, nil
}

type component struct {
	weight  float64
	returns contracts.ReturnSeries
}

// commonDates returns the dates present in every component's series,
// ascending.
func commonDates(components map[string]*component) []time.Time {
	counts := make(map[time.Time]int)
	for _, c := range components {
		for _, p := range c.returns {
			counts[p.Date]++
		}
	}

	var dates []time.Time
	for date, n := range counts {
		if n == len(components) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
