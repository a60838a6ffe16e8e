// Command factoryplan drives the Cost Analysis and Production Table
// Solver engines against a small built-in fixture, standing in for the
// UI layer that spec.md treats as an external collaborator (the real
// inputs come from game data load + user page editing, both out of
// scope for this core).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironforge-labs/factoryplan/internal/config"
	"github.com/ironforge-labs/factoryplan/internal/logger"
)

var (
	configPath string
	logLevel   string

	cost      config.Cost
	solverCfg config.Solver
)

var rootCmd = &cobra.Command{
	Use:   "factoryplan",
	Short: "Production-planning cost analysis and solve driver",
	Long: `factoryplan exercises the Cost Analysis and Production Table Solver
engines against a built-in demonstration fixture.

Examples:
  factoryplan cost                 # run Cost Analysis over the fixture pack
  factoryplan solve                # solve the fixture's demo production page`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(logger.Config{Level: logLevel, ToStdout: true}); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		loadedCost, loadedSolver, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cost, solverCfg = loadedCost, loadedSolver
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(costCmd)
	rootCmd.AddCommand(solveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
