package commands

import (
	"fmt"

	"github.com/quantfoundry/factors/internal/engine"
	"github.com/quantfoundry/factors/internal/marketdata"
	"github.com/quantfoundry/factors/internal/runlog"
	"github.com/quantfoundry/factors/pkg/config"
	"github.com/quantfoundry/factors/pkg/database"
	"github.com/quantfoundry/factors/pkg/httputil"
	"github.com/quantfoundry/factors/pkg/logger"
	"github.com/quantfoundry/factors/pkg/redis"
)

// deps bundles the shared wiring every command builds on: data
// clients, the run engine and the run log.
type deps struct {
	cfg      *config.Config
	log      *logger.Logger
	coinbase *marketdata.CoinbaseClient
	equity   *marketdata.EquityClient
	loader   *marketdata.Loader
	runner   *engine.Runner
	runLog   *runlog.CSVLog
	repo     *runlog.Repository // nil when no database is configured
	db       *database.DB       // nil when no database is configured
	rdb      *redis.Client
}

// buildDeps loads config and constructs the shared dependency graph.
// The database and Redis are optional; the CSV run log always works.
func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	var cache *redis.Cache
	if rdb.Enabled() {
		cache = redis.NewCache(rdb, "candles")
	}

	httpClient := httputil.New(cfg, log)
	coinbase := marketdata.NewCoinbaseClient(httpClient, cfg.Coinbase.BaseURL, cfg.Coinbase.RequestsPerSec, cache, log)

	// the metrics provider budget is shared across processes, so its
	// client gets the Redis-backed limiter when available
	metricsHTTP := httputil.New(cfg, log)
	if rdb.Enabled() {
		metricsHTTP = metricsHTTP.WithRateLimiter(redis.NewRateLimiter(rdb, "factors"), redis.MetricsRateLimit)
	}
	metrics := marketdata.NewMetricsClient(metricsHTTP, cfg.Metrics.BaseURL, cfg.Metrics.APIKey, log)

	symbols := make([]string, 0, len(marketdata.DefaultSymbolMap))
	for symbol := range marketdata.DefaultSymbolMap {
		symbols = append(symbols, symbol)
	}

	d := &deps{
		cfg:      cfg,
		log:      log,
		coinbase: coinbase,
		equity:   marketdata.NewEquityClient(httpClient, cfg.Equity.BaseURL, log),
		loader:   marketdata.NewLoader(coinbase, metrics, symbols, marketdata.DefaultSymbolMap, log),
		runner:   engine.NewRunner(log),
		runLog:   runlog.NewCSVLog(cfg.LogDir, log),
		rdb:      rdb,
	}

	if cfg.HasDatabase() {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.db = db
		d.repo = runlog.NewRepository(db, log)
	}

	return d, nil
}

func (d *deps) close() {
	if d.db != nil {
		d.db.Close()
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
}
