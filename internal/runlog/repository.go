package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/pkg/database"
	"github.com/quantfoundry/factors/pkg/logger"
)

// Repository persists runs and their return series to Postgres. It is
// best effort alongside the CSV log: the CSV files stay the primary
// record.
type Repository struct {
	db  *database.DB
	log *logger.Logger
}

// NewRepository creates a run repository.
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// EnsureSchema creates the run tables when they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS factor_runs (
			run_id            TEXT NOT NULL,
			factor            TEXT NOT NULL,
			breakpoint        DOUBLE PRECISION NOT NULL,
			min_assets        INTEGER NOT NULL,
			weighting_method  TEXT NOT NULL,
			cumulative_return DOUBLE PRECISION,
			annualized_return DOUBLE PRECISION,
			sharpe_ratio      DOUBLE PRECISION,
			sortino_ratio     DOUBLE PRECISION,
			years             DOUBLE PRECISION NOT NULL,
			long_only_return  DOUBLE PRECISION,
			short_only_return DOUBLE PRECISION,
			start_date        DATE NOT NULL,
			end_date          DATE NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (factor, run_id)
		);
		CREATE TABLE IF NOT EXISTS factor_returns (
			factor  TEXT NOT NULL,
			run_id  TEXT NOT NULL,
			date    DATE NOT NULL,
			return  DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (factor, run_id, date)
		);`

	if _, err := r.db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure runlog schema: %w", err)
	}
	return nil
}

// SaveRun inserts one run's configuration and report.
func (r *Repository) SaveRun(ctx context.Context, cfg contracts.RunConfig, report contracts.PerformanceReport) error {
	const query = `
		INSERT INTO factor_runs (
			run_id, factor, breakpoint, min_assets, weighting_method,
			cumulative_return, annualized_return, sharpe_ratio, sortino_ratio,
			years, long_only_return, short_only_return, start_date, end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Pool.Exec(ctx, query,
		report.RunID, cfg.Factor, cfg.Breakpoint, cfg.MinAssets, string(cfg.Weighting),
		metricPtr(report.CumulativeReturn), metricPtr(report.AnnualizedReturn),
		metricPtr(report.Sharpe), metricPtr(report.Sortino),
		report.Years, metricPtr(report.LongCumulative), metricPtr(report.ShortCumulative),
		report.StartDate, report.EndDate,
	)
	if err != nil {
		return fmt.Errorf("insert factor run %s/%s: %w", cfg.Factor, report.RunID, err)
	}
	return nil
}

// SaveSeries inserts a run's full return series in one batch.
func (r *Repository) SaveSeries(ctx context.Context, factor, runID string, series contracts.ReturnSeries) error {
	batch := &pgx.Batch{}
	const query = `INSERT INTO factor_returns (factor, run_id, date, return) VALUES ($1, $2, $3, $4)`
	for _, p := range series {
		batch.Queue(query, factor, runID, p.Date, p.Return)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range series {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert factor returns %s/%s: %w", factor, runID, err)
		}
	}
	return nil
}

// RunSummary is one persisted run row.
type RunSummary struct {
	RunID            string
	Factor           string
	Breakpoint       float64
	MinAssets        int
	WeightingMethod  string
	CumulativeReturn contracts.Metric
	AnnualizedReturn contracts.Metric
	Sharpe           contracts.Metric
	Sortino          contracts.Metric
	Years            float64
	StartDate        time.Time
	EndDate          time.Time
}

// ListRuns returns the most recent runs for a factor, newest first.
func (r *Repository) ListRuns(ctx context.Context, factor string, limit int) ([]RunSummary, error) {
	const query = `
		SELECT run_id, factor, breakpoint, min_assets, weighting_method,
		       cumulative_return, annualized_return, sharpe_ratio, sortino_ratio,
		       years, start_date, end_date
		FROM factor_runs
		WHERE factor = $1
		ORDER BY run_id DESC
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, factor, limit)
	if err != nil {
		return nil, fmt.Errorf("query factor runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var cum, ann, sharpe, sortino *float64
		if err := rows.Scan(
			&s.RunID, &s.Factor, &s.Breakpoint, &s.MinAssets, &s.WeightingMethod,
			&cum, &ann, &sharpe, &sortino, &s.Years, &s.StartDate, &s.EndDate,
		); err != nil {
			return nil, fmt.Errorf("scan factor run: %w", err)
		}
		s.CumulativeReturn = metricFromPtr(cum)
		s.AnnualizedReturn = metricFromPtr(ann)
		s.Sharpe = metricFromPtr(sharpe)
		s.Sortino = metricFromPtr(sortino)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Series loads a persisted return series in date order.
func (r *Repository) Series(ctx context.Context, factor, runID string) (contracts.ReturnSeries, error) {
	const query = `
		SELECT date, return FROM factor_returns
		WHERE factor = $1 AND run_id = $2
		ORDER BY date`

	rows, err := r.db.Pool.Query(ctx, query, factor, runID)
	if err != nil {
		return nil, fmt.Errorf("query factor returns: %w", err)
	}
	defer rows.Close()

	var series contracts.ReturnSeries
	for rows.Next() {
		var date time.Time
		var ret float64
		if err := rows.Scan(&date, &ret); err != nil {
			return nil, fmt.Errorf("scan factor return: %w", err)
		}
		series = series.Append(date, ret)
	}
	return series, rows.Err()
}

func metricPtr(m contracts.Metric) *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}

func metricFromPtr(p *float64) contracts.Metric {
	if p == nil {
		return contracts.Undefined()
	}
	return contracts.Defined(*p)
}
