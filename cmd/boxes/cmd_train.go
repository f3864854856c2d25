package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/boxes/internal/balltrack"
	"github.com/nvandessel/boxes/internal/config"
	"github.com/nvandessel/boxes/internal/store"
)

// addEngineFlags registers the overrides shared by both trainers.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", 0, "Random seed (default from config)")
	cmd.Flags().String("recorder", "", "Trajectory recorder: chain or block")
	cmd.Flags().Float64("exponent", 0, "Exploration exponent (1 = proportional)")
	cmd.Flags().Bool("no-journal", false, "Do not record the run in the journal")
	cmd.Flags().Bool("trace", false, "Export OpenTelemetry spans to stderr")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
}

// applyEngineFlags copies explicitly set engine flags onto cfg.
func applyEngineFlags(cmd *cobra.Command, cfg *config.BoxesConfig) {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Engine.Seed, _ = f.GetUint64("seed")
	}
	if f.Changed("recorder") {
		cfg.Engine.Recorder, _ = f.GetString("recorder")
	}
	if f.Changed("exponent") {
		cfg.Engine.Exponent, _ = f.GetFloat64("exponent")
	}
	if noJournal, _ := f.GetBool("no-journal"); noJournal {
		cfg.Journal.Path = ""
	}
	if trace, _ := f.GetBool("trace"); trace {
		cfg.Tracing.Enabled = true
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
	}
}

func newTicTacToeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tictactoe",
		Short: "Train two tables by tic-tac-toe self-play",
		Long: `Play double-games between two fresh tables, alternating who moves first,
and report first-mover wins, second-mover wins, draws and underflows per
batch. Play converges on draws as both tables learn.

Examples:
  boxes tictactoe                          # Defaults from config
  boxes tictactoe --games 50000 --seed 7   # Shorter, reproducible run
  boxes tictactoe --recorder block --exponent 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyEngineFlags(cmd, cfg)
			f := cmd.Flags()
			if f.Changed("games") {
				cfg.TicTacToe.Games, _ = f.GetInt("games")
			}
			if f.Changed("batch-size") {
				cfg.TicTacToe.BatchSize, _ = f.GetInt("batch-size")
			}
			if f.Changed("max-turns") {
				cfg.TicTacToe.MaxTurns, _ = f.GetInt("max-turns")
			}
			if f.Changed("tokens") {
				cfg.TicTacToe.Tokens, _ = f.GetFloat64("tokens")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			var onBatch func(store.Batch)
			if !jsonOut {
				fmt.Fprintf(out, "%10s %8s %8s %8s %10s\n", "start", "first", "second", "draws", "underflows")
				onBatch = func(b store.Batch) {
					fmt.Fprintf(out, "%10d %8d %8d %8d %10d\n", b.Start, b.FirstWins, b.SecondWins, b.Draws, b.Underflows)
				}
			}

			sess, err := newSession(ctx, cmd, cfg, onBatch)
			if err != nil {
				return err
			}
			defer sess.Close()

			res, err := sess.runner.RunTicTacToe(ctx)
			if err != nil {
				return fmt.Errorf("tictactoe run: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Run %s %s after %d double-games\n", res.RunID, res.Status, res.DoubleGames)
			fmt.Fprintf(out, "  draws dominate (P50): %s\n", milestone(res.Milestones.P50))
			fmt.Fprintf(out, "  draws 10x wins (P90): %s\n", milestone(res.Milestones.P90))
			fmt.Fprintf(out, "  last underflow:       %s\n", milestone(res.Milestones.LastUnderflow))
			return nil
		},
	}

	addEngineFlags(cmd)
	cmd.Flags().Int("games", 0, "Number of double-games")
	cmd.Flags().Int("batch-size", 0, "Double-games per statistics batch")
	cmd.Flags().Int("max-turns", 0, "Move cap per game")
	cmd.Flags().Float64("tokens", 0, "Initial weight per box")
	return cmd
}

// milestone formats a batch start, where -1 means never reached.
func milestone(start int64) string {
	if start < 0 {
		return "never"
	}
	return fmt.Sprintf("%d", start)
}

func newBallTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balltrack",
		Short: "Learn to hold a ball at a setpoint on a tilting track",
		Long: `Run the ball-on-track simulator with online learning: every step is
rewarded by its distance from the setpoint and credited to the last few
decisions.

Examples:
  boxes balltrack --steps 2000
  boxes balltrack --history 2 --setpoint 0.3 --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyEngineFlags(cmd, cfg)
			f := cmd.Flags()
			if f.Changed("steps") {
				cfg.BallTrack.Steps, _ = f.GetInt("steps")
			}
			if f.Changed("history") {
				cfg.BallTrack.History, _ = f.GetInt("history")
			}
			if f.Changed("actions") {
				cfg.BallTrack.Actions, _ = f.GetInt("actions")
			}
			if f.Changed("setpoint") {
				cfg.BallTrack.Setpoint, _ = f.GetFloat64("setpoint")
			}
			if f.Changed("tokens") {
				cfg.BallTrack.Tokens, _ = f.GetFloat64("tokens")
			}
			if f.Changed("report-every") {
				cfg.BallTrack.ReportEvery, _ = f.GetInt("report-every")
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			var onBatch func(store.Batch)
			var onStep func(balltrack.StepReport)
			if !jsonOut {
				if verbose {
					fmt.Fprintf(out, "%8s %8s %8s %8s %8s %8s %4s\n", "step", "angle", "x", "v", "error", "reward", "cmd")
					onStep = func(r balltrack.StepReport) { printStep(out, r) }
				} else {
					fmt.Fprintf(out, "%8s %8s %12s %14s %10s\n", "start", "steps", "mean reward", "mean |error|", "underflows")
					onBatch = func(b store.Batch) {
						fmt.Fprintf(out, "%8d %8d %12.4f %14.4f %10d\n", b.Start, b.Episodes, b.MeanReward, b.MeanAbsError, b.Underflows)
					}
				}
			}

			sess, err := newSession(ctx, cmd, cfg, onBatch)
			if err != nil {
				return err
			}
			defer sess.Close()

			res, err := sess.runner.RunBallTrack(ctx, onStep)
			if err != nil {
				return fmt.Errorf("balltrack run: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(res)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Run %s %s after %d steps\n", res.RunID, res.Status, res.Steps)
			fmt.Fprintf(out, "  mean reward: %.4f\n", res.MeanReward)
			fmt.Fprintf(out, "  final x:     %.4f (error %.4f)\n", res.Final.X, res.Final.Error)
			fmt.Fprintf(out, "  underflows:  %d\n", res.Underflows)
			return nil
		},
	}

	addEngineFlags(cmd)
	cmd.Flags().Int("steps", 0, "Control steps to simulate")
	cmd.Flags().Int("history", 0, "Observation window and credited decisions")
	cmd.Flags().Int("actions", 0, "Number of tilt commands")
	cmd.Flags().Float64("setpoint", 0, "Target ball position on [0, 1]")
	cmd.Flags().Float64("tokens", 0, "Initial weight per box")
	cmd.Flags().Int("report-every", 0, "Steps per statistics batch")
	cmd.Flags().Bool("verbose", false, "Print every step")
	return cmd
}

func printStep(w io.Writer, r balltrack.StepReport) {
	fmt.Fprintf(w, "%8d %8.4f %8.4f %8.4f %8.4f %8.4f %4d\n", r.Step, r.Angle, r.X, r.V, r.Error, r.Reward, r.Action)
}
