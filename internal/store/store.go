// Package store defines the Journal interface for recording training runs
// and their per-batch statistics. Weight tables are never persisted.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Run is one training session.
type Run struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"` // "tictactoe", "balltrack"
	Seed       uint64     `json:"seed"`
	Recorder   string     `json:"recorder"`
	Exponent   float64    `json:"exponent"`
	Params     string     `json:"params,omitempty"` // JSON snapshot of the driver config
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Summary    string     `json:"summary,omitempty"` // JSON summary written at finish
}

// Batch is one row of statistics. Tic-tac-toe fills the game counters,
// ball-on-track fills the reward and error means.
type Batch struct {
	RunID        string  `json:"run_id"`
	Index        int     `json:"index"`
	Start        int64   `json:"start"`
	Episodes     int     `json:"episodes"`
	FirstWins    int     `json:"first_wins"`
	SecondWins   int     `json:"second_wins"`
	Draws        int     `json:"draws"`
	Underflows   int     `json:"underflows"`
	MeanReward   float64 `json:"mean_reward"`
	MeanAbsError float64 `json:"mean_abs_error"`
}

// Journal records runs and batches.
type Journal interface {
	CreateRun(ctx context.Context, run Run) error
	RecordBatch(ctx context.Context, batch Batch) error

	// FinishRun sets the final status and summary of a run.
	FinishRun(ctx context.Context, id, status, summary string, at time.Time) error

	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Batches returns a run's batches in index order.
	Batches(ctx context.Context, runID string) ([]Batch, error)

	Close() error
}
