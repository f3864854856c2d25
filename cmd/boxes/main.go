package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "boxes",
		Short: "BOXES reinforcement learning engine",
		Long: `boxes trains matchbox-style weight tables by trial and error.

It plays tic-tac-toe against itself and balances a ball on a tilting
track, journaling every run so progress can be reported and charted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.boxes/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newTicTacToeCmd(),
		newBallTrackCmd(),
		newRunsCmd(),
		newReportCmd(),
		newChartCmd(),
		newConfigCmd(),
		newBackupCmd(),
		newRestoreCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
