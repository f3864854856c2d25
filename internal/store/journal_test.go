package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// journalFactories lets the same behaviour tests run against every Journal.
func journalFactories(t *testing.T) map[string]func() Journal {
	t.Helper()
	return map[string]func() Journal{
		"memory": func() Journal { return NewMemoryJournal() },
		"sqlite": func() Journal {
			j, err := NewSQLiteJournal(context.Background(), filepath.Join(t.TempDir(), "boxes.db"))
			if err != nil {
				t.Fatalf("NewSQLiteJournal() error = %v", err)
			}
			return j
		},
	}
}

func testRun(id string, started time.Time) Run {
	return Run{
		ID:        id,
		Kind:      "tictactoe",
		Seed:      42,
		Recorder:  "chain",
		Exponent:  1.5,
		Params:    `{"games":100}`,
		Status:    StatusRunning,
		StartedAt: started,
	}
}

func TestJournal_CreateAndGetRun(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, newJournal := range journalFactories(t) {
		t.Run(name, func(t *testing.T) {
			j := newJournal()
			defer j.Close()

			if err := j.CreateRun(ctx, testRun("run-1", started)); err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
			got, err := j.GetRun(ctx, "run-1")
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if got.Kind != "tictactoe" || got.Seed != 42 || got.Recorder != "chain" || got.Exponent != 1.5 {
				t.Errorf("GetRun() = %+v", got)
			}
			if got.Params != `{"games":100}` {
				t.Errorf("Params = %q", got.Params)
			}
			if !got.StartedAt.Equal(started) {
				t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
			}
			if got.FinishedAt != nil {
				t.Errorf("FinishedAt = %v, want nil", got.FinishedAt)
			}

			if err := j.CreateRun(ctx, Run{}); err == nil {
				t.Error("CreateRun() with empty ID should fail")
			}
		})
	}
}

func TestJournal_GetRunNotFound(t *testing.T) {
	ctx := context.Background()
	for name, newJournal := range journalFactories(t) {
		t.Run(name, func(t *testing.T) {
			j := newJournal()
			defer j.Close()

			if _, err := j.GetRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
			}
			err := j.FinishRun(ctx, "missing", StatusCompleted, "", time.Now())
			if !errors.Is(err, ErrRunNotFound) {
				t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestJournal_FinishRun(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	for name, newJournal := range journalFactories(t) {
		t.Run(name, func(t *testing.T) {
			j := newJournal()
			defer j.Close()

			if err := j.CreateRun(ctx, testRun("run-1", started)); err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
			if err := j.FinishRun(ctx, "run-1", StatusCancelled, `{"p50":3}`, finished); err != nil {
				t.Fatalf("FinishRun() error = %v", err)
			}

			got, err := j.GetRun(ctx, "run-1")
			if err != nil {
				t.Fatalf("GetRun() error = %v", err)
			}
			if got.Status != StatusCancelled {
				t.Errorf("Status = %q, want %q", got.Status, StatusCancelled)
			}
			if got.Summary != `{"p50":3}` {
				t.Errorf("Summary = %q", got.Summary)
			}
			if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
				t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
			}
		})
	}
}

func TestJournal_ListRunsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, newJournal := range journalFactories(t) {
		t.Run(name, func(t *testing.T) {
			j := newJournal()
			defer j.Close()

			for i, id := range []string{"old", "newest", "middle"} {
				offset := map[string]time.Duration{"old": 0, "middle": time.Hour, "newest": 2 * time.Hour}[id]
				if err := j.CreateRun(ctx, testRun(id, base.Add(offset))); err != nil {
					t.Fatalf("CreateRun(%d) error = %v", i, err)
				}
			}

			runs, err := j.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			want := []string{"newest", "middle", "old"}
			if len(runs) != len(want) {
				t.Fatalf("ListRuns() returned %d runs, want %d", len(runs), len(want))
			}
			for i, id := range want {
				if runs[i].ID != id {
					t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, id)
				}
			}

			limited, err := j.ListRuns(ctx, 2)
			if err != nil {
				t.Fatalf("ListRuns(2) error = %v", err)
			}
			if len(limited) != 2 || limited[0].ID != "newest" {
				t.Errorf("ListRuns(2) = %+v", limited)
			}
		})
	}
}

func TestJournal_Batches(t *testing.T) {
	ctx := context.Background()
	for name, newJournal := range journalFactories(t) {
		t.Run(name, func(t *testing.T) {
			j := newJournal()
			defer j.Close()

			if err := j.CreateRun(ctx, testRun("run-1", time.Now())); err != nil {
				t.Fatalf("CreateRun() error = %v", err)
			}
			for _, idx := range []int{2, 0, 1} {
				b := Batch{RunID: "run-1", Index: idx, Start: int64(idx) * 100, Episodes: 100,
					FirstWins: 50 + idx, SecondWins: 30, Draws: 20 - idx, Underflows: 3}
				if err := j.RecordBatch(ctx, b); err != nil {
					t.Fatalf("RecordBatch(%d) error = %v", idx, err)
				}
			}
			// Re-recording an index replaces it.
			if err := j.RecordBatch(ctx, Batch{RunID: "run-1", Index: 1, Start: 100, Episodes: 100, Draws: 100}); err != nil {
				t.Fatalf("RecordBatch(replace) error = %v", err)
			}

			got, err := j.Batches(ctx, "run-1")
			if err != nil {
				t.Fatalf("Batches() error = %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("Batches() returned %d, want 3", len(got))
			}
			for i, b := range got {
				if b.Index != i {
					t.Errorf("batches[%d].Index = %d", i, b.Index)
				}
			}
			if got[1].Draws != 100 || got[1].FirstWins != 0 {
				t.Errorf("replaced batch = %+v", got[1])
			}
			if got[2].FirstWins != 52 || got[2].Start != 200 {
				t.Errorf("batches[2] = %+v", got[2])
			}

			empty, err := j.Batches(ctx, "other")
			if err != nil {
				t.Fatalf("Batches(other) error = %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("Batches(other) = %v, want empty", empty)
			}
		})
	}
}

func TestJournal_RecordBatchUnknownRun(t *testing.T) {
	ctx := context.Background()
	for name, newJournal := range journalFactories(t) {
		t.Run(name, func(t *testing.T) {
			j := newJournal()
			defer j.Close()

			if err := j.RecordBatch(ctx, Batch{RunID: "ghost", Index: 0}); err == nil {
				t.Error("RecordBatch() for unknown run should fail")
			}
		})
	}
}
