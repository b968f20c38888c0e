package engine

import (
	"fmt"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/panel"
	"github.com/quantfoundry/factors/internal/performance"
	"github.com/quantfoundry/factors/internal/portfolio"
	"github.com/quantfoundry/factors/internal/universe"
	"github.com/quantfoundry/factors/pkg/logger"
)

// Result is everything one run produces. It is owned exclusively by
// the caller; no state is shared across runs.
type Result struct {
	RunID  string
	Config contracts.RunConfig

	Series      contracts.ReturnSeries
	LongSeries  contracts.ReturnSeries
	ShortSeries contracts.ReturnSeries
	Snapshots   []contracts.PortfolioSnapshot

	Report contracts.PerformanceReport
}

// Runner drives one factor computation: prepare, filter, build, fold
// per-period returns into the output series and derive the report.
type Runner struct {
	prep *panel.Preparer
	log  *logger.Logger
	now  func() time.Time
}

// NewRunner creates a run driver.
func NewRunner(log *logger.Logger) *Runner {
	return &Runner{
		prep: panel.NewPreparer(log),
		log:  log,
		now:  time.Now,
	}
}

// Run executes one configuration against a raw panel. Configuration
// problems fail immediately; thin periods are skipped silently; a run
// that produces no period at all fails with ErrNoFactorReturns.
func (r *Runner) Run(cfg contracts.RunConfig, raw contracts.Panel) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def, err := factors.Get(cfg.Factor)
	if err != nil {
		return nil, err
	}
	if _, err := portfolio.WeightColumn(cfg.Weighting); err != nil {
		return nil, err
	}

	prepared, signalCol, err := def.Prepare(r.prep, raw, cfg, r.log)
	if err != nil {
		return nil, err
	}
	filtered := universe.NewFilter(cfg, r.log).Apply(prepared)

	builder := portfolio.NewBuilder(cfg, portfolio.Params{
		SignalColumn: signalCol,
		ReturnColumn: factors.ReturnColumn(),
		Ascending:    def.Ascending,
		LongOnly:     def.LongOnly,
		LegSize:      def.LegSize,
	}, r.log)

	result := &Result{
		RunID:  r.now().Format("20060102_150405"),
		Config: cfg,
	}

	for _, date := range filtered.Dates() {
		if !inRange(date, cfg) {
			continue
		}
		outcome, ok, err := r.period(builder, def, cfg, date, filtered.CrossSection(date))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		result.Series = result.Series.Append(date, outcome.factorReturn)
		result.LongSeries = result.LongSeries.Append(date, outcome.longReturn)
		if !def.LongOnly {
			result.ShortSeries = result.ShortSeries.Append(date, outcome.shortReturn)
		}
		result.Snapshots = append(result.Snapshots, outcome.snapshot)
	}

	if len(result.Series) == 0 {
		return nil, contracts.ErrNoFactorReturns
	}

	analyzer := performance.NewAnalyzer(panel.Weekly.PeriodsPerYear())
	result.Report = analyzer.Report(cfg.Factor, result.Series, result.LongSeries, result.ShortSeries, result.Snapshots)
	result.Report.RunID = result.RunID

	r.log.WithFields(map[string]interface{}{
		"factor":  cfg.Factor,
		"run_id":  result.RunID,
		"periods": len(result.Series),
	}).Info("Factor run completed")
	return result, nil
}

type periodOutcome struct {
	factorReturn float64
	longReturn   float64
	shortReturn  float64
	snapshot     contracts.PortfolioSnapshot
}

// period is a pure function of one date's cross-section and the run
// configuration. ok=false skips the period without recording anything.
func (r *Runner) period(builder *portfolio.Builder, def factors.Definition, cfg contracts.RunConfig, date time.Time, cross contracts.Panel) (periodOutcome, bool, error) {
	assignment, ok := builder.Build(date, cross)
	if !ok {
		return periodOutcome{}, false, nil
	}

	longLeg, longRet, err := portfolio.LegReturn(assignment.Long, cfg.Weighting, factors.ReturnColumn())
	if err != nil {
		return periodOutcome{}, false, fmt.Errorf("long leg at %s: %w", date.Format("2006-01-02"), err)
	}

	if def.LongOnly {
		if !longRet.Valid {
			return periodOutcome{}, false, nil
		}
		return periodOutcome{
			factorReturn: longRet.Value,
			longReturn:   longRet.Value,
			snapshot:     contracts.PortfolioSnapshot{Date: date, Long: longLeg},
		}, true, nil
	}

	shortLeg, shortRet, err := portfolio.LegReturn(assignment.Short, cfg.Weighting, factors.ReturnColumn())
	if err != nil {
		return periodOutcome{}, false, fmt.Errorf("short leg at %s: %w", date.Format("2006-01-02"), err)
	}

	// both legs must produce a defined return, otherwise the period
	// is absent from the series
	if !longRet.Valid || !shortRet.Valid {
		return periodOutcome{}, false, nil
	}

	return periodOutcome{
		factorReturn: longRet.Value - shortRet.Value,
		longReturn:   longRet.Value,
		shortReturn:  shortRet.Value,
		snapshot:     contracts.PortfolioSnapshot{Date: date, Long: longLeg, Short: shortLeg},
	}, true, nil
}

func inRange(date time.Time, cfg contracts.RunConfig) bool {
	if !cfg.Start.IsZero() && date.Before(cfg.Start) {
		return false
	}
	if !cfg.End.IsZero() && date.After(cfg.End) {
		return false
	}
	return true
}
