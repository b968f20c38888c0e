package runlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/performance"
	"github.com/quantfoundry/factors/pkg/logger"
)

// header is the current run-log column order. Older log files may
// carry fewer columns; the reader pads or extends to stay compatible.
var header = []string{
	"run_id", "factor", "breakpoint", "min_assets", "weighting_method",
	"cumulative_returns", "annualized_return", "sharpe_ratio", "sortino_ratio",
	"years", "long_only_returns", "short_only_returns", "start_date", "end_date",
}

// extraColumns are appended, in order, when a row carries more values
// than the file's header: columns added across versions of the log
// format.
var extraColumns = []string{"sharpe_ratio", "sortino_ratio", "start_date", "end_date"}

// Record is one flat run-log entry.
type Record map[string]string

// CSVLog appends run results to per-factor CSV files and writes the
// full per-run return series alongside.
type CSVLog struct {
	dir string
	log *logger.Logger
}

// NewCSVLog creates a run log rooted at dir. The directory is created
// on first write.
func NewCSVLog(dir string, log *logger.Logger) *CSVLog {
	return &CSVLog{dir: dir, log: log}
}

// Append writes one run's config and report to {factor}.csv, creating
// the file with a header when it does not exist yet.
func (l *CSVLog) Append(cfg contracts.RunConfig, report contracts.PerformanceReport) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(l.dir, cfg.Factor+".csv")
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write run log header: %w", err)
		}
	}

	row := []string{
		report.RunID,
		cfg.Factor,
		formatFloat(cfg.Breakpoint),
		strconv.Itoa(cfg.MinAssets),
		string(cfg.Weighting),
		formatMetric(report.CumulativeReturn),
		formatMetric(report.AnnualizedReturn),
		formatMetric(report.Sharpe),
		formatMetric(report.Sortino),
		formatFloat(report.Years),
		formatMetric(report.LongCumulative),
		formatMetric(report.ShortCumulative),
		report.StartDate.Format("2006-01-02"),
		report.EndDate.Format("2006-01-02"),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write run log row: %w", err)
	}

	w.Flush()
	return w.Error()
}

// Load reads every run logged for a factor. Rows written by older
// format versions are padded with empty values; rows with surplus
// values extend the header with the known added columns and truncate
// the rest.
func (l *CSVLog) Load(factor string) ([]Record, error) {
	path := filepath.Join(l.dir, factor+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read run log for %s: %w", factor, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // column counts drift across log versions
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse run log for %s: %w", factor, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	cols := rows[0]
	var records []Record
	for _, values := range rows[1:] {
		if len(values) > len(cols) {
			for _, extra := range extraColumns {
				if len(cols) >= len(values) {
					break
				}
				if !contains(cols, extra) {
					cols = append(cols, extra)
				}
			}
			if len(values) > len(cols) {
				values = values[:len(cols)]
			}
		}

		record := make(Record, len(cols))
		for i, col := range cols {
			if i < len(values) {
				record[col] = values[i]
			} else {
				record[col] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// WriteSeries saves a run's full return series as
// {factor}_{run_id}_returns.csv with date, return and cumulative
// return columns.
func (l *CSVLog) WriteSeries(factor, runID string, series contracts.ReturnSeries) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.Create(l.seriesPath(factor, runID))
	if err != nil {
		return fmt.Errorf("create series file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "return", "cumulative_return"}); err != nil {
		return err
	}

	cumulative := performance.Cumulative(series)
	for i, p := range series {
		row := []string{
			p.Date.Format("2006-01-02"),
			formatFloat(p.Return),
			formatFloat(cumulative[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadSeries loads a previously written return series together with
// its cumulative column.
func (l *CSVLog) ReadSeries(factor, runID string) (contracts.ReturnSeries, []float64, error) {
	f, err := os.Open(l.seriesPath(factor, runID))
	if err != nil {
		return nil, nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read series file: %w", err)
	}

	var series contracts.ReturnSeries
	var cumulative []float64
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			continue
		}
		ret, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		cum, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		series = series.Append(date, ret)
		cumulative = append(cumulative, cum)
	}
	return series, cumulative, nil
}

// SeriesRunIDs lists the run ids with a saved series for a factor,
// oldest first. Run ids are timestamps so lexical order is
// chronological.
func (l *CSVLog) SeriesRunIDs(factor string) ([]string, error) {
	pattern := filepath.Join(l.dir, factor+"_*_returns.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	var runIDs []string
	prefix := factor + "_"
	for _, match := range matches {
		name := filepath.Base(match)
		runID := strings.TrimSuffix(strings.TrimPrefix(name, prefix), "_returns.csv")
		runIDs = append(runIDs, runID)
	}
	return runIDs, nil
}

func (l *CSVLog) seriesPath(factor, runID string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s_%s_returns.csv", factor, runID))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatMetric writes undefined metrics as an empty field, matching
// the tolerant reader.
func formatMetric(m contracts.Metric) string {
	if !m.Valid {
		return ""
	}
	return formatFloat(m.Value)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
