package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"github.com/nvandessel/boxes/internal/constants"
	"github.com/nvandessel/boxes/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled training runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			j, err := requireJournal(ctx, cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-9s  %-9s  %-6s  %s\n", "ID", "KIND", "STATUS", "SEED", "STARTED")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-9s  %-9s  %-6d  %s\n",
					r.ID, r.Kind, r.Status, r.Seed, r.StartedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show a run's batch statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			noColor, _ := cmd.Flags().GetBool("no-color")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			j, err := requireJournal(ctx, cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			batches, err := j.Batches(ctx, run.ID)
			if err != nil {
				return fmt.Errorf("load batches: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if batches == nil {
					batches = []store.Batch{}
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"run":     run,
					"batches": batches,
				})
			}
			writeReport(out, aurora.NewAurora(!noColor), run, batches)
			return nil
		},
	}
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	return cmd
}

// writeReport prints a run header and its batch table. Tic-tac-toe batches
// where draws dominate are highlighted, as are batches that needed refills.
func writeReport(w io.Writer, au aurora.Aurora, run *store.Run, batches []store.Batch) {
	fmt.Fprintf(w, "%s %s\n", au.Bold("Run"), run.ID)
	fmt.Fprintf(w, "  kind:     %s\n", run.Kind)
	fmt.Fprintf(w, "  status:   %s\n", statusColor(au, run.Status))
	fmt.Fprintf(w, "  seed:     %d\n", run.Seed)
	fmt.Fprintf(w, "  recorder: %s  exponent: %g\n", run.Recorder, run.Exponent)
	fmt.Fprintf(w, "  started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "  elapsed:  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Summary != "" {
		fmt.Fprintf(w, "  summary:  %s\n", run.Summary)
	}
	fmt.Fprintln(w)

	if len(batches) == 0 {
		fmt.Fprintln(w, "No batches recorded.")
		return
	}

	if run.Kind == constants.RunBallTrack.String() {
		fmt.Fprintf(w, "%8s %8s %12s %14s %10s\n", "start", "steps", "mean reward", "mean |error|", "underflows")
		for _, b := range batches {
			fmt.Fprintf(w, "%8d %8d %12.4f %14.4f %s\n",
				b.Start, b.Episodes, b.MeanReward, b.MeanAbsError, underflowCell(au, b.Underflows))
		}
		return
	}

	fmt.Fprintf(w, "%10s %8s %8s %8s %10s\n", "start", "first", "second", "draws", "underflows")
	for _, b := range batches {
		draws := fmt.Sprintf("%8d", b.Draws)
		if b.Draws > b.FirstWins && b.Draws > b.SecondWins {
			draws = au.Green(draws).String()
		}
		fmt.Fprintf(w, "%10d %8d %8d %s %s\n", b.Start, b.FirstWins, b.SecondWins, draws, underflowCell(au, b.Underflows))
	}
}

func statusColor(au aurora.Aurora, status string) string {
	switch status {
	case store.StatusCompleted:
		return au.Green(status).String()
	case store.StatusFailed:
		return au.Red(status).String()
	case store.StatusCancelled:
		return au.Yellow(status).String()
	default:
		return au.Blue(status).String()
	}
}

func underflowCell(au aurora.Aurora, n int) string {
	cell := fmt.Sprintf("%10d", n)
	if n > 0 {
		return au.Red(cell).String()
	}
	return cell
}
