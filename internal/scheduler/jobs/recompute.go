package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/engine"
	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/marketdata"
	"github.com/quantfoundry/factors/internal/runlog"
	"github.com/quantfoundry/factors/pkg/logger"
)

// RecomputeJob recomputes every registered factor on a schedule and
// appends the results to the run log. One failed factor does not stop
// the others; the job fails only when every factor fails.
type RecomputeJob struct {
	loader   *marketdata.Loader
	runner   *engine.Runner
	runLog   *runlog.CSVLog
	repo     *runlog.Repository
	schedule string
	defaults contracts.RunConfig
	logger   *logger.Logger
}

// NewRecomputeJob creates the weekly recompute job. The defaults
// config supplies breakpoint, min assets, weighting and thresholds;
// the factor name is filled in per run. repo may be nil.
func NewRecomputeJob(loader *marketdata.Loader, runner *engine.Runner, runLog *runlog.CSVLog, repo *runlog.Repository, schedule string, defaults contracts.RunConfig, log *logger.Logger) *RecomputeJob {
	return &RecomputeJob{
		loader:   loader,
		runner:   runner,
		runLog:   runLog,
		repo:     repo,
		schedule: schedule,
		defaults: defaults,
		logger:   log,
	}
}

func (j *RecomputeJob) Name() string     { return "factor_recompute" }
func (j *RecomputeJob) Schedule() string { return j.schedule }

// Run recomputes all factors over the trailing three years.
func (j *RecomputeJob) Run(ctx context.Context) error {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(-3, 0, 0)

	var failed []string
	for _, def := range factors.List() {
		if err := j.recompute(ctx, def.Name, start, end); err != nil {
			j.logger.WithField("factor", def.Name).WithError(err).Error("Factor recompute failed")
			failed = append(failed, def.Name)
		}
	}

	if len(failed) == len(factors.List()) {
		return fmt.Errorf("all factor recomputes failed: %v", failed)
	}
	if len(failed) > 0 {
		j.logger.WithField("factors", failed).Warn("Some factor recomputes failed")
	}
	return nil
}

func (j *RecomputeJob) recompute(ctx context.Context, factor string, start, end time.Time) error {
	cfg := j.defaults
	cfg.Factor = factor
	cfg.Start = start
	cfg.End = end

	panel, err := j.loader.LoadPanel(ctx, factors.RequiredMetrics(factor), start, end)
	if err != nil {
		return fmt.Errorf("load panel: %w", err)
	}

	result, err := j.runner.Run(cfg, panel)
	if err != nil {
		return err
	}

	if err := j.runLog.Append(cfg, result.Report); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	if err := j.runLog.WriteSeries(factor, result.RunID, result.Series); err != nil {
		return fmt.Errorf("write return series: %w", err)
	}

	if j.repo != nil {
		if err := j.repo.SaveRun(ctx, cfg, result.Report); err != nil {
			j.logger.WithField("factor", factor).WithError(err).Warn("Run not saved to database")
		} else if err := j.repo.SaveSeries(ctx, factor, result.RunID, result.Series); err != nil {
			j.logger.WithField("factor", factor).WithError(err).Warn("Return series not saved to database")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"factor": factor,
		"run_id": result.RunID,
	}).Info("Factor recomputed")
	return nil
}
