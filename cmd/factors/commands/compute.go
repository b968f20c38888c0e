package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/performance"
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute <factor>",
	Short: "Compute a factor model and log the results",
	Long: `Loads market data, computes the long/short factor portfolio
returns and appends the results to the run log.

Example:
  go run ./cmd/factors compute smb --breakpoint 0.2 --min-assets 5
  go run ./cmd/factors compute momentum --weighting market_cap --start 2023-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: runCompute,
}

var (
	computeBreakpoint   float64
	computeMinAssets    int
	computeWeighting    string
	computeLookback     int
	computeMinMarketCap float64
	computeMinVolume    float64
	computeMinLifetime  int
	computeStart        string
	computeEnd          string
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().Float64Var(&computeBreakpoint, "breakpoint", 0.2, "fraction of the ranked cross-section per leg")
	computeCmd.Flags().IntVar(&computeMinAssets, "min-assets", 5, "minimum eligible assets per period")
	computeCmd.Flags().StringVar(&computeWeighting, "weighting", "equal", "weighting method (equal|market_cap|inverse_variance)")
	computeCmd.Flags().IntVar(&computeLookback, "lookback", 0, "signal lookback in periods (0 = factor default)")
	computeCmd.Flags().Float64Var(&computeMinMarketCap, "min-market-cap", 0, "market cap eligibility threshold")
	computeCmd.Flags().Float64Var(&computeMinVolume, "min-volume", 0, "volume eligibility threshold")
	computeCmd.Flags().IntVar(&computeMinLifetime, "min-lifetime-days", 0, "minimum asset lifetime in days")
	computeCmd.Flags().StringVar(&computeStart, "start", "", "start date (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&computeEnd, "end", "", "end date (YYYY-MM-DD)")
}

func runCompute(cmd *cobra.Command, args []string) error {
	factor := args[0]
	if _, err := factors.Get(factor); err != nil {
		return err
	}

	cfg := contracts.RunConfig{
		Factor:          factor,
		Breakpoint:      computeBreakpoint,
		MinAssets:       computeMinAssets,
		Weighting:       contracts.WeightingMethod(computeWeighting),
		Lookback:        computeLookback,
		MinMarketCap:    computeMinMarketCap,
		MinVolume:       computeMinVolume,
		MinLifetimeDays: computeMinLifetime,
	}

	var err error
	if computeStart != "" {
		if cfg.Start, err = time.Parse("2006-01-02", computeStart); err != nil {
			return fmt.Errorf("invalid start date %q: %w", computeStart, err)
		}
	}
	if computeEnd != "" {
		if cfg.End, err = time.Parse("2006-01-02", computeEnd); err != nil {
			return fmt.Errorf("invalid end date %q: %w", computeEnd, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	end := cfg.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	start := cfg.Start
	if start.IsZero() {
		start = end.AddDate(-3, 0, 0)
	}

	panel, err := d.loader.LoadPanel(cmd.Context(), factors.RequiredMetrics(factor), start, end)
	if err != nil {
		return fmt.Errorf("load panel: %w", err)
	}

	result, err := d.runner.Run(cfg, panel)
	if err != nil {
		return err
	}

	if err := d.runLog.Append(cfg, result.Report); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	if err := d.runLog.WriteSeries(factor, result.RunID, result.Series); err != nil {
		return fmt.Errorf("write return series: %w", err)
	}
	if d.repo != nil {
		if err := d.repo.EnsureSchema(cmd.Context()); err == nil {
			if err := d.repo.SaveRun(cmd.Context(), cfg, result.Report); err != nil {
				d.log.WithError(err).Warn("Run not saved to database")
			} else if err := d.repo.SaveSeries(cmd.Context(), factor, result.RunID, result.Series); err != nil {
				d.log.WithError(err).Warn("Return series not saved to database")
			}
		}
	}

	report := result.Report
	fmt.Printf("Run %s completed: %d periods over %.2f years\n", result.RunID, report.Periods, report.Years)
	fmt.Printf("  cumulative return:  %s\n", formatMetric(report.CumulativeReturn))
	fmt.Printf("  annualized return:  %s\n", formatMetric(report.AnnualizedReturn))
	fmt.Printf("  sharpe ratio:       %s\n", formatMetric(report.Sharpe))
	fmt.Printf("  sortino ratio:      %s\n", formatMetric(report.Sortino))
	fmt.Printf("  max drawdown:       %s\n", formatMetric(report.MaxDrawdown))

	if len(result.Snapshots) > 0 {
		attr := performance.Attribute(result.Snapshots[len(result.Snapshots)-1])
		if top, ok := attr.TopContributor(); ok {
			fmt.Printf("  top contributor:    %s (%s, %+.4f in the latest period)\n",
				top.Asset, top.Side, top.Contribution)
		}
	}
	return nil
}

func formatMetric(m contracts.Metric) string {
	if !m.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", m.Value)
}
