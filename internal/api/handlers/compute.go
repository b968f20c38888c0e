package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/engine"
	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/marketdata"
	"github.com/quantfoundry/factors/internal/performance"
	"github.com/quantfoundry/factors/internal/runlog"
	"github.com/quantfoundry/factors/pkg/logger"
)

// computeRequest is the POST body for a factor computation.
type computeRequest struct {
	Breakpoint         float64 `json:"breakpoint"`
	MinAssets          int     `json:"min_assets"`
	WeightingMethod    string  `json:"weighting_method"`
	Lookback           int     `json:"lookback"`
	MarketCapThreshold float64 `json:"market_cap_threshold"`
	LiquidityThreshold float64 `json:"liquidity_threshold"`
	MinLifetimeDays    int     `json:"min_lifetime_days"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
}

// ComputeHandler runs factor computations end to end: load the panel,
// run the engine, persist the results.
type ComputeHandler struct {
	loader *marketdata.Loader
	runner *engine.Runner
	runLog *runlog.CSVLog
	repo   *runlog.Repository
	logger *logger.Logger
}

// NewComputeHandler creates a compute handler. repo may be nil when no
// database is configured; the CSV log stays the primary record.
func NewComputeHandler(loader *marketdata.Loader, runner *engine.Runner, runLog *runlog.CSVLog, repo *runlog.Repository, log *logger.Logger) *ComputeHandler {
	return &ComputeHandler{
		loader: loader,
		runner: runner,
		runLog: runLog,
		repo:   repo,
		logger: log,
	}
}

// Compute runs one factor computation.
// POST /api/compute/{factor}
func (h *ComputeHandler) Compute(w http.ResponseWriter, r *http.Request) {
	factor := mux.Vars(r)["factor"]
	if _, err := factors.Get(factor); err != nil {
		writeError(w, http.StatusNotFound, "Unknown factor: "+factor)
		return
	}

	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	cfg, err := req.toRunConfig(factor)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	start, end := loadWindow(cfg)
	panel, err := h.loader.LoadPanel(r.Context(), factors.RequiredMetrics(factor), start, end)
	if err != nil {
		h.logger.WithField("factor", factor).WithError(err).Error("Panel load failed")
		writeError(w, http.StatusBadGateway, "Failed to load market data: "+err.Error())
		return
	}

	result, err := h.runner.Run(cfg, panel)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, contracts.ErrInvalidConfig):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, contracts.ErrNoFactorReturns):
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	h.persist(r.Context(), cfg, result)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":         result.RunID,
		"factor":         factor,
		"config":         cfg,
		"performance":    result.Report,
		"latest_returns": latestReturns(result.Series, 10),
		"attribution":    latestAttribution(result.Snapshots),
	})
}

// persist writes the run to the CSV log and, when configured, the
// database. Persistence failures are logged, never surfaced to the
// caller: the computation itself succeeded.
func (h *ComputeHandler) persist(ctx context.Context, cfg contracts.RunConfig, result *engine.Result) {
	if err := h.runLog.Append(cfg, result.Report); err != nil {
		h.logger.WithError(err).Error("Run log append failed")
	}
	if err := h.runLog.WriteSeries(cfg.Factor, result.RunID, result.Series); err != nil {
		h.logger.WithError(err).Error("Return series write failed")
	}

	if h.repo == nil {
		return
	}
	if err := h.repo.SaveRun(ctx, cfg, result.Report); err != nil {
		h.logger.WithError(err).Warn("Run not saved to database")
		return
	}
	if err := h.repo.SaveSeries(ctx, cfg.Factor, result.RunID, result.Series); err != nil {
		h.logger.WithError(err).Warn("Return series not saved to database")
	}
}

func (req computeRequest) toRunConfig(factor string) (contracts.RunConfig, error) {
	cfg := contracts.RunConfig{
		Factor:          factor,
		Breakpoint:      req.Breakpoint,
		MinAssets:       req.MinAssets,
		Weighting:       contracts.WeightingMethod(req.WeightingMethod),
		Lookback:        req.Lookback,
		MinMarketCap:    req.MarketCapThreshold,
		MinVolume:       req.LiquidityThreshold,
		MinLifetimeDays: req.MinLifetimeDays,
	}
	if req.WeightingMethod == "" {
		cfg.Weighting = contracts.WeightEqual
	}

	var err error
	if req.StartDate != "" {
		if cfg.Start, err = time.Parse("2006-01-02", req.StartDate); err != nil {
			return cfg, errors.New("Invalid start_date: " + req.StartDate)
		}
	}
	if req.EndDate != "" {
		if cfg.End, err = time.Parse("2006-01-02", req.EndDate); err != nil {
			return cfg, errors.New("Invalid end_date: " + req.EndDate)
		}
	}
	return cfg, nil
}

// loadWindow widens the configured range so lagged signals at the
// start of the range have history to draw on, and falls back to a
// multi-year default when the range is open.
func loadWindow(cfg contracts.RunConfig) (time.Time, time.Time) {
	end := cfg.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	start := cfg.Start
	if start.IsZero() {
		start = end.AddDate(-3, 0, 0)
	} else {
		start = start.AddDate(0, 0, -7*12)
	}
	return start, end
}

// latestAttribution breaks the most recent period's factor return down
// by asset, with the top contributor called out.
func latestAttribution(snapshots []contracts.PortfolioSnapshot) map[string]interface{} {
	if len(snapshots) == 0 {
		return nil
	}
	attr := performance.Attribute(snapshots[len(snapshots)-1])

	out := map[string]interface{}{
		"date":          attr.Date.Format("2006-01-02"),
		"contributions": attr.Contributions,
		"total":         attr.Total,
	}
	if top, ok := attr.TopContributor(); ok {
		out["top_contributor"] = top
	}
	return out
}

func latestReturns(series contracts.ReturnSeries, n int) []map[string]interface{} {
	if len(series) > n {
		series = series[len(series)-n:]
	}
	out := make([]map[string]interface{}, 0, len(series))
	for _, p := range series {
		out = append(out, map[string]interface{}{
			"date":   p.Date.Format("2006-01-02"),
			"return": p.Return,
		})
	}
	return out
}
