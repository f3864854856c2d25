package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/boxes/internal/backup"
	"github.com/nvandessel/boxes/internal/config"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the run journal to a compressed file",
		Long: `Export every journaled run and its batches to a compressed archive.

Default location: ~/.boxes/backups/boxes-backup-YYYYMMDD-HHMMSS.mmm.boxes
Older archives in the same directory are pruned by backup.max_count and
backup.max_age.

Examples:
  boxes backup                       # Archive to the default directory
  boxes backup --output runs.boxes   # Archive to a specific file
  boxes backup list                  # List archives
  boxes backup verify <file>         # Check an archive's checksum
  boxes restore <file>               # Merge an archive into the journal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outputPath, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("keep") {
				cfg.Backup.MaxCount, _ = cmd.Flags().GetInt("keep")
			}
			if cmd.Flags().Changed("max-age") {
				cfg.Backup.MaxAge, _ = cmd.Flags().GetString("max-age")
			}
			policy, err := backup.BuildPolicy(cfg.Backup.MaxCount, cfg.Backup.MaxAge)
			if err != nil {
				return fmt.Errorf("invalid retention: %w", err)
			}

			if outputPath == "" {
				dir, err := backupDir(cfg)
				if err != nil {
					return err
				}
				outputPath = backup.GenerateBackupPath(dir, time.Now())
			}

			ctx := cmd.Context()
			j, err := requireJournal(ctx, cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			archive, err := backup.Export(ctx, j, outputPath)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			deleted, err := backup.ApplyRetention(filepath.Dir(outputPath), policy)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path":        outputPath,
					"run_count":   len(archive.Runs),
					"batch_count": archive.BatchCount(),
					"pruned":      len(deleted),
				})
			}
			fmt.Fprintf(out, "Backup created: %d runs, %d batches\n", len(archive.Runs), archive.BatchCount())
			fmt.Fprintf(out, "  Path: %s\n", outputPath)
			if len(deleted) > 0 {
				fmt.Fprintf(out, "  Pruned %d old archive(s)\n", len(deleted))
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Archive path (default: auto-generated in ~/.boxes/backups/)")
	cmd.Flags().Int("keep", 0, "Keep the N newest archives (overrides backup.max_count; 0 disables)")
	cmd.Flags().String("max-age", "", "Keep archives younger than this, e.g. 30d (overrides backup.max_age)")

	cmd.AddCommand(newBackupListCmd(), newBackupVerifyCmd())
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives in the backup directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir, err := backupDir(cfg)
			if err != nil {
				return err
			}
			backups, err := backup.ListBackups(dir)
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}

			type entry struct {
				Path       string    `json:"path"`
				Size       int64     `json:"size_bytes"`
				CreatedAt  time.Time `json:"created_at"`
				RunCount   int       `json:"run_count"`
				BatchCount int       `json:"batch_count"`
			}
			entries := make([]entry, 0, len(backups))
			for _, b := range backups {
				e := entry{Path: b.Path, Size: b.Size, CreatedAt: b.CreatedAt}
				if h, err := backup.ReadHeader(b.Path); err == nil {
					e.RunCount, e.BatchCount = h.RunCount, h.BatchCount
				}
				entries = append(entries, e)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"backups":   entries,
					"directory": dir,
				})
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No backups found in %s\n", dir)
				return nil
			}
			fmt.Fprintf(out, "Backups in %s:\n", dir)
			for _, e := range entries {
				fmt.Fprintf(out, "  %s  %s  %d runs, %d batches, %d bytes\n",
					filepath.Base(e.Path), e.CreatedAt.Local().Format(time.DateTime), e.RunCount, e.BatchCount, e.Size)
			}
			return nil
		},
	}
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check an archive against its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			header, err := backup.Verify(args[0])
			if err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path":     args[0],
					"valid":    true,
					"checksum": header.Checksum,
					"runs":     header.RunCount,
					"batches":  header.BatchCount,
				})
			}
			fmt.Fprintf(out, "OK: %s (%d runs, %d batches)\n", args[0], header.RunCount, header.BatchCount)
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Merge an archive into the run journal",
		Long: `Restore runs from an archive created by 'boxes backup'.
Runs already in the journal are skipped; nothing is overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

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

			result, err := backup.Restore(ctx, j, args[0])
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(result)
			}
			fmt.Fprintf(out, "Restored %d runs (%d batches), skipped %d existing\n",
				result.RunsRestored, result.BatchesRestored, result.RunsSkipped)
			return nil
		},
	}
}

func backupDir(cfg *config.BoxesConfig) (string, error) {
	if cfg.Backup.Dir != "" {
		return cfg.Backup.Dir, nil
	}
	dir, err := backup.DefaultBackupDir()
	if err != nil {
		return "", fmt.Errorf("failed to get backup directory: %w", err)
	}
	return dir, nil
}
