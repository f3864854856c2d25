// Package backup exports the run journal to compressed archives and
// restores archives into a journal.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nvandessel/boxes/internal/config"
	"github.com/nvandessel/boxes/internal/constants"
	"github.com/nvandessel/boxes/internal/store"
)

// Archive is the payload of a journal archive.
type Archive struct {
	CreatedAt time.Time   `json:"created_at"`
	Runs      []RunRecord `json:"runs"`
}

// RunRecord is a run with all of its batches.
type RunRecord struct {
	store.Run
	Batches []store.Batch `json:"batches"`
}

// BatchCount returns the number of batches across all runs.
func (a *Archive) BatchCount() int {
	n := 0
	for _, r := range a.Runs {
		n += len(r.Batches)
	}
	return n
}

// DefaultBackupDir returns ~/.boxes/backups.
func DefaultBackupDir() (string, error) {
	dir := config.DefaultDir()
	if dir == "" {
		return "", fmt.Errorf("failed to get home directory")
	}
	return filepath.Join(dir, constants.BackupDirName), nil
}

// GenerateBackupPath returns a timestamped archive path in dir.
func GenerateBackupPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s%s%s", filePrefix, now.UTC().Format("20060102-150405.000"), fileSuffix))
}

// Snapshot collects every run in the journal, newest first.
func Snapshot(ctx context.Context, j store.Journal, now time.Time) (*Archive, error) {
	runs, err := j.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	a := &Archive{CreatedAt: now.UTC(), Runs: make([]RunRecord, 0, len(runs))}
	for _, run := range runs {
		batches, err := j.Batches(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read batches of %s: %w", run.ID, err)
		}
		a.Runs = append(a.Runs, RunRecord{Run: run, Batches: batches})
	}
	return a, nil
}

// Export snapshots the journal and writes it to path.
func Export(ctx context.Context, j store.Journal, path string) (*Archive, error) {
	a, err := Snapshot(ctx, j, time.Now())
	if err != nil {
		return nil, err
	}
	if err := Write(path, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RestoreResult counts what a restore did.
type RestoreResult struct {
	RunsRestored    int `json:"runs_restored"`
	RunsSkipped     int `json:"runs_skipped"`
	BatchesRestored int `json:"batches_restored"`
}

// Restore merges an archive into the journal. Runs whose ID already
// exists are skipped whole; their batches are not touched.
func Restore(ctx context.Context, j store.Journal, path string) (*RestoreResult, error) {
	a, err := Read(path)
	if err != nil {
		return nil, err
	}
	return Merge(ctx, j, a)
}

// Merge writes the runs of a into j, skipping runs that already exist.
func Merge(ctx context.Context, j store.Journal, a *Archive) (*RestoreResult, error) {
	result := &RestoreResult{}
	for _, rec := range a.Runs {
		_, err := j.GetRun(ctx, rec.ID)
		if err == nil {
			result.RunsSkipped++
			continue
		}
		if !errors.Is(err, store.ErrRunNotFound) {
			return result, fmt.Errorf("failed to look up run %s: %w", rec.ID, err)
		}

		if err := j.CreateRun(ctx, rec.Run); err != nil {
			return result, err
		}
		for _, b := range rec.Batches {
			b.RunID = rec.ID
			if err := j.RecordBatch(ctx, b); err != nil {
				return result, err
			}
			result.BatchesRestored++
		}
		if rec.FinishedAt != nil {
			if err := j.FinishRun(ctx, rec.ID, rec.Status, rec.Summary, *rec.FinishedAt); err != nil {
				return result, err
			}
		}
		result.RunsRestored++
	}
	return result, nil
}
