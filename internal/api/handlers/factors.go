package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/runlog"
	"github.com/quantfoundry/factors/pkg/logger"
)

// FactorsHandler serves the factor catalog and previously logged
// results.
type FactorsHandler struct {
	runLog *runlog.CSVLog
	logger *logger.Logger
}

// NewFactorsHandler creates a factors handler.
func NewFactorsHandler(runLog *runlog.CSVLog, log *logger.Logger) *FactorsHandler {
	return &FactorsHandler{runLog: runLog, logger: log}
}

// List returns every registered factor with its description.
// GET /api/factors
func (h *FactorsHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []map[string]interface{}
	for _, def := range factors.List() {
		out = append(out, map[string]interface{}{
			"name":        def.Name,
			"description": def.Description,
			"long_only":   def.LongOnly,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"factors": out})
}

// Logs returns the historical run log for one factor.
// GET /api/factors/{factor}/logs?limit=N
func (h *FactorsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	factor := mux.Vars(r)["factor"]
	if _, err := factors.Get(factor); err != nil {
		writeError(w, http.StatusNotFound, "Unknown factor: "+factor)
		return
	}

	records, err := h.runLog.Load(factor)
	if err != nil {
		writeError(w, http.StatusNotFound, "No logs found for factor: "+factor)
		return
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit: "+limitStr)
			return
		}
		if limit < len(records) {
			records = records[len(records)-limit:]
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"factor": factor,
		"count":  len(records),
		"logs":   records,
	})
}

// Latest returns the most recent logged run for one factor.
// GET /api/factors/{factor}/latest
func (h *FactorsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	factor := mux.Vars(r)["factor"]
	if _, err := factors.Get(factor); err != nil {
		writeError(w, http.StatusNotFound, "Unknown factor: "+factor)
		return
	}

	records, err := h.runLog.Load(factor)
	if err != nil || len(records) == 0 {
		writeError(w, http.StatusNotFound, "No logs found for factor: "+factor)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"factor": factor,
		"latest": records[len(records)-1],
	})
}

// Compare returns the latest logged run of every factor side by side.
// GET /api/factors/compare
func (h *FactorsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	comparison := make(map[string]runlog.Record)
	for _, def := range factors.List() {
		records, err := h.runLog.Load(def.Name)
		if err != nil || len(records) == 0 {
			continue
		}
		comparison[def.Name] = records[len(records)-1]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"comparison": comparison})
}

// TimeSeries returns the latest saved return series for the requested
// factors, optionally restricted to a date range and normalized to a
// 100 baseline.
// GET /api/factors/time-series?factors=smb,momentum&start_date=&end_date=&normalize_to_100=
func (h *FactorsHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	requested := factors.List()
	if param := r.URL.Query().Get("factors"); param != "" {
		requested = nil
		for _, name := range strings.Split(param, ",") {
			def, err := factors.Get(strings.TrimSpace(name))
			if err != nil {
				writeError(w, http.StatusNotFound, "Unknown factor: "+name)
				return
			}
			requested = append(requested, def)
		}
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	normalize := r.URL.Query().Get("normalize_to_100") == "true"

	result := make(map[string]interface{})
	for _, def := range requested {
		runIDs, err := h.runLog.SeriesRunIDs(def.Name)
		if err != nil || len(runIDs) == 0 {
			continue
		}

		series, cumulative, err := h.runLog.ReadSeries(def.Name, runIDs[len(runIDs)-1])
		if err != nil {
			h.logger.WithField("factor", def.Name).WithError(err).Warn("Time series load failed")
			continue
		}

		var dates []string
		var returns, cumReturns []float64
		for i, p := range series {
			if !start.IsZero() && p.Date.Before(start) {
				continue
			}
			if !end.IsZero() && p.Date.After(end) {
				continue
			}
			dates = append(dates, p.Date.Format("2006-01-02"))
			returns = append(returns, p.Return)
			c := cumulative[i]
			if normalize {
				c = (c + 1) * 100
			}
			cumReturns = append(cumReturns, c)
		}
		if len(dates) == 0 {
			continue
		}

		result[def.Name] = map[string]interface{}{
			"factor":             def.Name,
			"dates":              dates,
			"returns":            returns,
			"cumulative_returns": cumReturns,
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if s := r.URL.Query().Get("start_date"); s != "" {
		if start, err = time.Parse("2006-01-02", s); err != nil {
			return start, end, err
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		if end, err = time.Parse("2006-01-02", s); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}
