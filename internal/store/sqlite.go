package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteJournal implements Journal on a SQLite database file.
type SQLiteJournal struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteJournal opens (creating if needed) the journal at dbPath.
func NewSQLiteJournal(ctx context.Context, dbPath string) (*SQLiteJournal, error) {
	if err := ensureParentDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteJournal{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteJournal) Path() string { return s.dbPath }

// CreateRun inserts a new run.
func (s *SQLiteJournal) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, seed, recorder, exponent, params, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, int64(run.Seed), run.Recorder, run.Exponent,
		nullString(run.Params), run.Status, run.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordBatch inserts or replaces one batch row.
func (s *SQLiteJournal) RecordBatch(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO batches
		  (run_id, idx, start, episodes, first_wins, second_wins, draws, underflows, mean_reward, mean_abs_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.RunID, b.Index, b.Start, b.Episodes, b.FirstWins, b.SecondWins, b.Draws,
		b.Underflows, b.MeanReward, b.MeanAbsError)
	if err != nil {
		return fmt.Errorf("failed to record batch %d of run %s: %w", b.Index, b.RunID, err)
	}
	return nil
}

// FinishRun sets the final status and summary.
func (s *SQLiteJournal) FinishRun(ctx context.Context, id, status, summary string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		status, nullString(summary), at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `id, kind, seed, recorder, exponent, params, status, started_at, finished_at, summary`

// GetRun retrieves a run by ID.
func (s *SQLiteJournal) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteJournal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Batches returns a run's batches in index order.
func (s *SQLiteJournal) Batches(ctx context.Context, runID string) ([]Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, start, episodes, first_wins, second_wins, draws, underflows, mean_reward, mean_abs_error
		FROM batches WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.RunID, &b.Index, &b.Start, &b.Episodes, &b.FirstWins, &b.SecondWins,
			&b.Draws, &b.Underflows, &b.MeanReward, &b.MeanAbsError); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteJournal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		seed     int64
		params   sql.NullString
		started  string
		finished sql.NullString
		summary  sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Kind, &seed, &run.Recorder, &run.Exponent, &params,
		&run.Status, &started, &finished, &summary); err != nil {
		return nil, err
	}
	run.Seed = uint64(seed)
	run.Params = params.String
	run.Summary = summary.String

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
	}
	run.StartedAt = t
	if finished.Valid {
		ft, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for run %s: %w", run.ID, err)
		}
		run.FinishedAt = &ft
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
