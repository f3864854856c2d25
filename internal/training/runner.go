package training

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/boxes/internal/config"
	"github.com/nvandessel/boxes/internal/logging"
	"github.com/nvandessel/boxes/internal/metrics"
	"github.com/nvandessel/boxes/internal/store"
	"github.com/nvandessel/boxes/internal/telemetry"
)

// Options wires a Runner. Only Config is required.
type Options struct {
	Config *config.BoxesConfig

	Journal  store.Journal
	Metrics  *metrics.Metrics
	Tracer   *telemetry.Tracer
	Logger   *slog.Logger
	Episodes *logging.EpisodeLogger

	// OnBatch is called after each batch is recorded.
	OnBatch func(store.Batch)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Runner executes training runs.
type Runner struct {
	opts Options
}

// NewRunner validates the configuration and fills defaults.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("training: config is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NewTracer(opts.Logger, false)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts}, nil
}

// run tracks one journaled run.
type run struct {
	r     *Runner
	id    string
	kind  string
	start time.Time
}

func (r *Runner) begin(ctx context.Context, kind string, params any) (*run, error) {
	cfg := r.opts.Config
	rn := &run{r: r, id: uuid.NewString(), kind: kind, start: r.opts.Now()}

	if r.opts.Journal != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding run params: %w", err)
		}
		if err := r.opts.Journal.CreateRun(ctx, store.Run{
			ID:        rn.id,
			Kind:      kind,
			Seed:      cfg.Engine.Seed,
			Recorder:  cfg.Engine.Recorder,
			Exponent:  cfg.Engine.Exponent,
			Params:    string(raw),
			Status:    store.StatusRunning,
			StartedAt: rn.start,
		}); err != nil {
			return nil, fmt.Errorf("journaling run: %w", err)
		}
	}

	r.opts.Logger.Info("run started",
		"run_id", rn.id,
		"kind", kind,
		"seed", cfg.Engine.Seed,
		"recorder", cfg.Engine.Recorder,
		"exponent", cfg.Engine.Exponent)
	return rn, nil
}

// batch records one closed batch everywhere it is observed.
func (rn *run) batch(ctx context.Context, b store.Batch, elapsed time.Duration) error {
	o := rn.r.opts
	b.RunID = rn.id
	if o.Journal != nil {
		if err := o.Journal.RecordBatch(context.WithoutCancel(ctx), b); err != nil {
			return fmt.Errorf("journaling batch %d: %w", b.Index, err)
		}
	}
	o.Metrics.ObserveBatch(rn.kind, b, elapsed)
	o.Logger.Info("batch",
		"run_id", rn.id,
		"index", b.Index,
		"start", b.Start,
		"episodes", b.Episodes,
		"first_wins", b.FirstWins,
		"second_wins", b.SecondWins,
		"draws", b.Draws,
		"underflows", b.Underflows,
		"mean_reward", b.MeanReward,
		"mean_abs_error", b.MeanAbsError)
	if o.OnBatch != nil {
		o.OnBatch(b)
	}
	return nil
}

// finish journals the final status. runErr decides the status when set;
// otherwise a done context means the run was cancelled.
func (rn *run) finish(ctx context.Context, summary any, runErr error) (string, error) {
	o := rn.r.opts
	status := store.StatusCompleted
	switch {
	case runErr != nil:
		status = store.StatusFailed
	case ctx.Err() != nil:
		status = store.StatusCancelled
	}

	if o.Journal != nil {
		raw, err := json.Marshal(summary)
		if err != nil {
			return status, fmt.Errorf("encoding run summary: %w", err)
		}
		// The run context may already be cancelled; the final write must still land.
		if err := o.Journal.FinishRun(context.WithoutCancel(ctx), rn.id, status, string(raw), o.Now()); err != nil {
			return status, fmt.Errorf("journaling run finish: %w", err)
		}
	}

	attrs := []any{"run_id", rn.id, "status", status, "elapsed", o.Now().Sub(rn.start)}
	if runErr != nil {
		o.Logger.Error("run failed", append(attrs, "error", runErr)...)
	} else {
		o.Logger.Info("run finished", attrs...)
	}
	return status, nil
}
