package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quantfoundry/factors/internal/contracts"
	"github.com/quantfoundry/factors/internal/exposure"
	"github.com/quantfoundry/factors/internal/factors"
	"github.com/quantfoundry/factors/internal/marketdata"
	"github.com/quantfoundry/factors/internal/runlog"
	"github.com/quantfoundry/factors/pkg/logger"
)

type assetBetaRequest struct {
	Asset           string `json:"asset"`
	Factor          string `json:"factor"`
	MinObservations int    `json:"min_observations"`
}

type portfolioBetaRequest struct {
	Holdings        map[string]float64 `json:"holdings"`
	Factor          string             `json:"factor"`
	MinObservations int                `json:"min_observations"`
}

// BetaHandler estimates factor exposure for assets and portfolios by
// regressing their returns on a previously computed factor series.
type BetaHandler struct {
	coinbase  *marketdata.CoinbaseClient
	symbolMap map[string]string
	runLog    *runlog.CSVLog
	logger    *logger.Logger
}

// NewBetaHandler creates a beta handler.
func NewBetaHandler(coinbase *marketdata.CoinbaseClient, symbolMap map[string]string, runLog *runlog.CSVLog, log *logger.Logger) *BetaHandler {
	if symbolMap == nil {
		symbolMap = marketdata.DefaultSymbolMap
	}
	return &BetaHandler{
		coinbase:  coinbase,
		symbolMap: symbolMap,
		runLog:    runLog,
		logger:    log,
	}
}

// AssetBeta estimates a single asset's beta to a factor.
// POST /api/beta/asset
func (h *BetaHandler) AssetBeta(w http.ResponseWriter, r *http.Request) {
	var req assetBetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Asset == "" {
		writeError(w, http.StatusBadRequest, "asset is required")
		return
	}

	factor, estimator, ok := h.setup(w, req.Factor, req.MinObservations)
	if !ok {
		return
	}

	estimate, err := estimator.AssetBeta(r.Context(), req.Asset, factor)
	if err != nil {
		h.writeEstimateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset":    req.Asset,
		"factor":   req.Factor,
		"estimate": estimate,
	})
}

// PortfolioBeta estimates the beta of a holdings map to a factor.
// POST /api/beta/portfolio
func (h *BetaHandler) PortfolioBeta(w http.ResponseWriter, r *http.Request) {
	var req portfolioBetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Holdings) == 0 {
		writeError(w, http.StatusBadRequest, "holdings must not be empty")
		return
	}

	factor, estimator, ok := h.setup(w, req.Factor, req.MinObservations)
	if !ok {
		return
	}

	estimate, err := estimator.PortfolioBeta(r.Context(), req.Holdings, factor)
	if err != nil {
		h.writeEstimateError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"factor":   req.Factor,
		"estimate": estimate,
	})
}

// setup resolves the factor's latest return series and builds an
// estimator whose return source covers the same window. A false return
// means the response has already been written.
func (h *BetaHandler) setup(w http.ResponseWriter, factorName string, minObs int) (contracts.ReturnSeries, *exposure.Estimator, bool) {
	if _, err := factors.Get(factorName); err != nil {
		writeError(w, http.StatusNotFound, "Unknown factor: "+factorName)
		return nil, nil, false
	}

	runIDs, err := h.runLog.SeriesRunIDs(factorName)
	if err != nil || len(runIDs) == 0 {
		writeError(w, http.StatusNotFound, "No computed return series for factor: "+factorName)
		return nil, nil, false
	}
	series, _, err := h.runLog.ReadSeries(factorName, runIDs[len(runIDs)-1])
	if err != nil || len(series) == 0 {
		writeError(w, http.StatusNotFound, "No computed return series for factor: "+factorName)
		return nil, nil, false
	}

	source := marketdata.NewPriceReturnSource(
		h.coinbase, h.symbolMap,
		series[0].Date, series[len(series)-1].Date,
		h.logger,
	)
	return series, exposure.NewEstimator(source, minObs, h.logger), true
}

func (h *BetaHandler) writeEstimateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contracts.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, contracts.ErrZeroPortfolioValue):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).Error("Beta estimation failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
