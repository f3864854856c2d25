package training

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nvandessel/boxes/internal/balltrack"
	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/config"
	"github.com/nvandessel/boxes/internal/constants"
	"github.com/nvandessel/boxes/internal/logging"
	"github.com/nvandessel/boxes/internal/store"
)

// BallTrackResult is the outcome of an online ball-on-track run.
type BallTrackResult struct {
	RunID      string               `json:"run_id"`
	Status     string               `json:"status"`
	Steps      int64                `json:"steps"`
	Underflows int64                `json:"underflows"`
	MeanReward float64              `json:"mean_reward"`
	Windows    []balltrack.Window   `json:"windows"`
	Final      balltrack.StepReport `json:"final"`
}

type ballTrackParams struct {
	Engine    config.EngineConfig    `json:"engine"`
	BallTrack config.BallTrackConfig `json:"balltrack"`
}

// BallTrackConfig maps the run configuration onto the simulator's.
func BallTrackConfig(c config.BallTrackConfig) balltrack.Config {
	return balltrack.Config{
		Params:      balltrack.DefaultParams(),
		BallStates:  c.BallStates,
		TrackStates: c.TrackStates,
		History:     c.History,
		Actions:     c.Actions,
		Setpoint:    c.Setpoint,
	}
}

// RunBallTrack drives the controller for cfg.BallTrack.Steps steps, calling
// onStep (if non-nil) after each one.
func (r *Runner) RunBallTrack(ctx context.Context, onStep func(balltrack.StepReport)) (*BallTrackResult, error) {
	cfg := r.opts.Config
	kind := constants.RunBallTrack.String()

	rn, err := r.begin(ctx, kind, ballTrackParams{cfg.Engine, cfg.BallTrack})
	if err != nil {
		return nil, err
	}
	res := &BallTrackResult{RunID: rn.id}

	runCtx, span := r.opts.Tracer.StartRun(ctx, rn.id, kind, cfg.Engine.Recorder, cfg.Engine.Seed, cfg.Engine.Exponent)
	runErr := r.driveBallTrack(runCtx, rn, res, onStep)
	r.opts.Tracer.EndRun(span, res.Steps, res.Underflows, runErr)

	status, err := rn.finish(ctx, struct {
		Steps        int64   `json:"steps"`
		Underflows   int64   `json:"underflows"`
		MeanReward   float64 `json:"mean_reward"`
		FinalX       float64 `json:"final_x"`
		FinalError   float64 `json:"final_error"`
		FinalReward  float64 `json:"final_reward"`
		FinalCommand int     `json:"final_command"`
	}{res.Steps, res.Underflows, res.MeanReward, res.Final.X, res.Final.Error, res.Final.Reward, res.Final.Action}, runErr)
	res.Status = status
	if runErr != nil {
		return res, runErr
	}
	return res, err
}

func (r *Runner) driveBallTrack(ctx context.Context, rn *run, res *BallTrackResult, onStep func(balltrack.StepReport)) error {
	cfg := r.opts.Config
	bt := cfg.BallTrack
	simCfg := BallTrackConfig(bt)

	states, err := simCfg.States()
	if err != nil {
		return err
	}
	table, err := boxes.NewTable(states, simCfg.Actions, bt.Tokens, cfg.Engine.TableOptions()...)
	if err != nil {
		return err
	}
	defer table.Close()

	sel := boxes.NewSelector(boxes.NewRandomSource(cfg.Engine.Seed), boxes.SelectorConfig{Exponent: cfg.Engine.Exponent})
	ctl, err := balltrack.NewController(simCfg, table, sel, boxes.Recorder(cfg.Engine.Recorder))
	if err != nil {
		return err
	}
	// Release the trajectory before the deferred table Close runs.
	defer ctl.Close()

	var (
		window      balltrack.Window
		windowStart time.Time
		windowSpan  trace.Span
		rewardSum   float64
	)
	closeWindow := func() error {
		r.opts.Tracer.EndBatch(windowSpan, window.Steps, window.Underflows)
		res.Windows = append(res.Windows, window)
		r.opts.Episodes.Log(logging.Episode{
			RunID:      rn.id,
			Kind:       rn.kind,
			Index:      window.Start,
			Moves:      window.Steps,
			Underflows: window.Underflows,
			Reward:     window.MeanReward,
		})
		return rn.batch(ctx, store.Batch{
			Index:        window.Index,
			Start:        window.Start,
			Episodes:     window.Steps,
			Underflows:   window.Underflows,
			MeanReward:   window.MeanReward,
			MeanAbsError: window.MeanAbsError,
		}, r.opts.Now().Sub(windowStart))
	}

	for i := 0; i < bt.Steps; i++ {
		if ctx.Err() != nil {
			break
		}
		if i%bt.ReportEvery == 0 {
			window = balltrack.Window{Index: len(res.Windows)}
			windowStart = r.opts.Now()
			_, windowSpan = r.opts.Tracer.StartBatch(ctx, window.Index, int64(i))
		}

		rep, err := ctl.Step()
		if err != nil {
			r.opts.Tracer.EndBatch(windowSpan, window.Steps, window.Underflows)
			return fmt.Errorf("step %d: %w", i, err)
		}
		window.Add(rep)
		res.Steps++
		res.Final = rep
		rewardSum += rep.Reward
		res.MeanReward = rewardSum / float64(res.Steps)

		underflows := 0
		if rep.Underflow {
			underflows = 1
			res.Underflows++
			r.opts.Logger.Debug("underflow", "run_id", rn.id, "step", rep.Step, "state", rep.State)
		}
		r.opts.Metrics.ObserveEpisode(rn.kind, "step", underflows)
		if onStep != nil {
			onStep(rep)
		}

		if window.Steps == bt.ReportEvery {
			if err := closeWindow(); err != nil {
				return err
			}
		}
	}

	if window.Steps > 0 && window.Steps < bt.ReportEvery {
		return closeWindow()
	}
	return nil
}
