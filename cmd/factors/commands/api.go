package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfoundry/factors/internal/api"
	"github.com/quantfoundry/factors/internal/api/handlers"
	"github.com/quantfoundry/factors/internal/marketdata"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	Long: `Starts the HTTP API server.

Endpoints:
  GET  /health                       - Health check
  GET  /api/factors                  - List factors
  GET  /api/factors/{factor}/logs    - Historical run logs
  GET  /api/factors/{factor}/latest  - Latest run
  GET  /api/factors/compare          - Latest run per factor
  GET  /api/factors/time-series      - Return time series
  POST /api/compute/{factor}         - Run a factor computation
  POST /api/beta/asset               - Asset factor beta
  POST /api/beta/portfolio           - Portfolio factor beta

Example:
  go run ./cmd/factors api
  go run ./cmd/factors api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer d.close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	if d.repo != nil {
		if err := d.repo.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	factorsHandler := handlers.NewFactorsHandler(d.runLog, d.log)
	computeHandler := handlers.NewComputeHandler(d.loader, d.runner, d.runLog, d.repo, d.log)
	betaHandler := handlers.NewBetaHandler(d.coinbase, marketdata.DefaultSymbolMap, d.runLog, d.log)

	router := api.NewRouter(factorsHandler, computeHandler, betaHandler, d.log)
	server := api.New(d.cfg, d.log, router)

	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
