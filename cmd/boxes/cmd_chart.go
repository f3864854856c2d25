package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/boxes/internal/store"
	"github.com/nvandessel/boxes/internal/visualization"
)

func newChartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart [run-id]",
		Short: "Chart a run's batch statistics",
		Long: `Render a run's batches as an HTML line chart or JSON, or serve charts for
every journaled run.

Examples:
  boxes chart 3f2a...                  # Write HTML and open it
  boxes chart 3f2a... --format json    # Batches as JSON on stdout
  boxes chart --serve                  # Browse all runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			noOpen, _ := cmd.Flags().GetBool("no-open")
			serve, _ := cmd.Flags().GetBool("serve")

			if !serve && len(args) == 0 {
				return fmt.Errorf("run ID required (or use --serve)")
			}
			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}

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

			if serve {
				return runChartServer(cmd, ctx, j, noOpen)
			}

			run, err := j.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			batches, err := j.Batches(ctx, run.ID)
			if err != nil {
				return fmt.Errorf("load batches: %w", err)
			}

			if f == visualization.FormatJSON {
				return visualization.Render(cmd.OutOrStdout(), *run, batches, f)
			}
			return writeChartFile(cmd, *run, batches, output, noOpen)
		},
	}

	cmd.Flags().String("format", "html", "Output format: html or json")
	cmd.Flags().StringP("output", "o", "", "HTML output path (default: temp directory)")
	cmd.Flags().Bool("no-open", false, "Do not open the chart in a browser")
	cmd.Flags().Bool("serve", false, "Serve charts for all runs until interrupted")
	return cmd
}

func writeChartFile(cmd *cobra.Command, run store.Run, batches []store.Batch, output string, noOpen bool) error {
	outPath := output
	if outPath == "" {
		outPath = filepath.Join(os.TempDir(), "boxes-"+run.ID+".html")
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := visualization.Render(f, run, batches, visualization.FormatHTML); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write chart file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", outPath)

	if !noOpen {
		if err := visualization.OpenBrowser(outPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
		}
	}
	return nil
}

// runChartServer serves run charts and blocks until Ctrl-C.
func runChartServer(cmd *cobra.Command, ctx context.Context, j store.Journal, noOpen bool) error {
	srv := visualization.NewServer(j)

	srvCtx, srvCancel := signalContext(ctx)
	defer srvCancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Chart server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
