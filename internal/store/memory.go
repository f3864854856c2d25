package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryJournal implements Journal in memory, for tests and dry runs.
type MemoryJournal struct {
	mu      sync.RWMutex
	runs    map[string]Run
	batches map[string][]Batch
}

// NewMemoryJournal creates an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		runs:    make(map[string]Run),
		batches: make(map[string][]Batch),
	}
}

// CreateRun adds a run.
func (m *MemoryJournal) CreateRun(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if _, exists := m.runs[run.ID]; exists {
		return fmt.Errorf("run already exists: %s", run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

// RecordBatch adds or replaces a batch.
func (m *MemoryJournal) RecordBatch(ctx context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[b.RunID]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, b.RunID)
	}
	list := m.batches[b.RunID]
	for i := range list {
		if list[i].Index == b.Index {
			list[i] = b
			return nil
		}
	}
	list = append(list, b)
	sort.Slice(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	m.batches[b.RunID] = list
	return nil
}

// FinishRun sets the final status and summary.
func (m *MemoryJournal) FinishRun(ctx context.Context, id, status, summary string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	run.Status = status
	run.Summary = summary
	run.FinishedAt = &at
	m.runs[id] = run
	return nil
}

// GetRun retrieves a run by ID.
func (m *MemoryJournal) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (m *MemoryJournal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Batches returns a copy of a run's batches in index order.
func (m *MemoryJournal) Batches(ctx context.Context, runID string) ([]Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Batch, len(m.batches[runID]))
	copy(out, m.batches[runID])
	return out, nil
}

// Close is a no-op.
func (m *MemoryJournal) Close() error { return nil }
