package contracts

import "errors"

// Sentinel errors for the engine's failure modes. Data insufficiency
// skips a period or estimate and the run continues; configuration
// problems are fatal and returned eagerly.
var (
	// ErrInvalidConfig marks configuration problems (unknown weighting
	// method, breakpoint out of range, missing prerequisite column).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInsufficientData is returned when a regression sample is
	// below the minimum observation count.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoFactorReturns is returned when a run produces an empty
	// return series.
	ErrNoFactorReturns = errors.New("no factor returns computed - check data availability")

	// ErrZeroPortfolioValue is returned when no supplied holding can
	// be priced, leaving nothing to weight.
	ErrZeroPortfolioValue = errors.New("total portfolio value resolves to zero")

	// ErrUnknownFactor is returned for factor names outside the registry.
	ErrUnknownFactor = errors.New("unknown factor")
)
