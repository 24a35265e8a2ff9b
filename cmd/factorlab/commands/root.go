package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "factorlab",
	Short: "factorlab - composite factor research engine",
	Long: `factorlab Unified CLI

Composite multi-factor research over Korean equities: collect market data,
define factor composites, and evaluate their cross sections and ICs.

Usage:
  go run ./cmd/factorlab [command]

Examples:
  go run ./cmd/factorlab api
  go run ./cmd/factorlab collect --codes 005930,000660 --days 90
  go run ./cmd/factorlab eval --file configs/factors.yaml
  go run ./cmd/factorlab scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
