package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "factors",
	Short: "Cross-sectional factor portfolio engine",
	Long: `Factor engine CLI

Computes long/short factor portfolio returns over crypto market data,
serves the results over HTTP and estimates factor exposures.

Usage:
  go run ./cmd/factors [command]

Examples:
  go run ./cmd/factors api
  go run ./cmd/factors compute smb --breakpoint 0.2 --min-assets 5
  go run ./cmd/factors schedule`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
