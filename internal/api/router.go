package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quantfoundry/factors/internal/api/handlers"
	"github.com/quantfoundry/factors/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(factorsHandler *handlers.FactorsHandler, computeHandler *handlers.ComputeHandler, betaHandler *handlers.BetaHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", rootHandler).Methods("GET")
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Factor catalog and logged results
	api.HandleFunc("/factors", factorsHandler.List).Methods("GET")
	api.HandleFunc("/factors/compare", factorsHandler.Compare).Methods("GET")
	api.HandleFunc("/factors/time-series", factorsHandler.TimeSeries).Methods("GET")
	api.HandleFunc("/factors/{factor}/logs", factorsHandler.Logs).Methods("GET")
	api.HandleFunc("/factors/{factor}/latest", factorsHandler.Latest).Methods("GET")

	// Computation and exposure
	api.HandleFunc("/compute/{factor}", computeHandler.Compute).Methods("POST")
	api.HandleFunc("/beta/asset", betaHandler.AssetBeta).Methods("POST")
	api.HandleFunc("/beta/portfolio", betaHandler.PortfolioBeta).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// rootHandler describes the API surface
func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"name":    "Factor Models API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/api/factors":                 "List all available factors",
			"/api/factors/{factor}/logs":   "Get historical performance logs for a factor",
			"/api/factors/{factor}/latest": "Get latest performance for a factor",
			"/api/factors/compare":         "Compare performance across all factors",
			"/api/factors/time-series":     "Get factor return time series",
			"/api/compute/{factor}":        "Compute a factor model (POST)",
			"/api/beta/asset":              "Estimate an asset's factor beta (POST)",
			"/api/beta/portfolio":          "Estimate a portfolio's factor beta (POST)",
		},
	})
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "factors-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
