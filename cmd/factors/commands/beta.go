package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/exposure"
	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/marketdata"
)

// betaCmd groups the exposure estimation commands
var betaCmd = &cobra.Command{
	Use:   "beta",
	Short: "Estimate factor exposures",
}

var betaAssetCmd = &cobra.Command{
	Use:   "asset <asset>",
	Short: "Estimate one asset's beta to a factor",
	Long: `Regresses the asset's weekly returns on the factor's latest
computed return series.

Example:
  go run ./cmd/factors beta asset bitcoin --factor smb`,
	Args: cobra.ExactArgs(1),
	RunE: runAssetBeta,
}

var betaPortfolioCmd = &cobra.Command{
	Use:   "portfolio <asset=amount,...>",
	Short: "Estimate a portfolio's beta to a factor",
	Long: `Converts holdings into value weights with latest prices and
regresses the combined weekly returns on the factor series.

Example:
  go run ./cmd/factors beta portfolio bitcoin=1.5,ethereum=10 --factor momentum`,
	Args: cobra.ExactArgs(1),
	RunE: runPortfolioBeta,
}

var (
	betaFactor string
	betaMinObs int
	betaEquity bool
)

func init() {
	rootCmd.AddCommand(betaCmd)
	betaCmd.AddCommand(betaAssetCmd)
	betaCmd.AddCommand(betaPortfolioCmd)

	betaCmd.PersistentFlags().StringVar(&betaFactor, "factor", "smb", "factor to regress against")
	betaCmd.PersistentFlags().IntVar(&betaMinObs, "min-observations", 0, "minimum aligned observations (0 = default)")
	betaAssetCmd.Flags().BoolVar(&betaEquity, "equity", false, "treat the asset as an equity ticker")
}

func runAssetBeta(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	series, estimator, err := betaSetup(d)
	if err != nil {
		return err
	}

	estimate, err := estimator.AssetBeta(cmd.Context(), args[0], series)
	if err != nil {
		return err
	}

	fmt.Printf("%s beta to %s: %.4f (alpha %.6f, %d observations)\n",
		args[0], betaFactor, estimate.Beta, estimate.Alpha, estimate.Observations)
	return nil
}

func runPortfolioBeta(cmd *cobra.Command, args []string) error {
	holdings, err := parseHoldings(args[0])
	if err != nil {
		return err
	}

	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	series, estimator, err := betaSetup(d)
	if err != nil {
		return err
	}

	estimate, err := estimator.PortfolioBeta(cmd.Context(), holdings, series)
	if err != nil {
		return err
	}

	fmt.Printf("portfolio beta to %s: %.4f (alpha %.6f, %d observations)\n",
		betaFactor, estimate.Beta, estimate.Alpha, estimate.Observations)
	if len(estimate.Excluded) > 0 {
		fmt.Printf("excluded assets: %s\n", strings.Join(estimate.Excluded, ", "))
	}
	return nil
}

// betaSetup loads the factor's latest return series and builds an
// estimator whose return source covers the same window.
func betaSetup(d *deps) (contracts.ReturnSeries, *exposure.Estimator, error) {
	if _, err := factors.Get(betaFactor); err != nil {
		return nil, nil, err
	}

	runIDs, err := d.runLog.SeriesRunIDs(betaFactor)
	if err != nil || len(runIDs) == 0 {
		return nil, nil, fmt.Errorf("no computed return series for factor %q, run compute first", betaFactor)
	}
	series, _, err := d.runLog.ReadSeries(betaFactor, runIDs[len(runIDs)-1])
	if err != nil {
		return nil, nil, err
	}
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("empty return series for factor %q", betaFactor)
	}

	start, end := series[0].Date, series[len(series)-1].Date

	var source exposure.ReturnSource
	if betaEquity {
		source = marketdata.NewEquityReturnSource(d.equity, start, end, d.log)
	} else {
		source = marketdata.NewPriceReturnSource(d.coinbase, marketdata.DefaultSymbolMap, start, end, d.log)
	}
	return series, exposure.NewEstimator(source, betaMinObs, d.log), nil
}

func parseHoldings(arg string) (map[string]float64, error) {
	holdings := make(map[string]float64)
	for _, pair := range strings.Split(arg, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid holding %q, expected asset=amount", pair)
		}
		amount, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in %q: %w", pair, err)
		}
		holdings[parts[0]] = amount
	}
	if len(holdings) == 0 {
		return nil, fmt.Errorf("no holdings given")
	}
	return holdings, nil
}
