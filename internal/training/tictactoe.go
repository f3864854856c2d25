package training

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/config"
	"github.com/nvandessel/boxes/internal/constants"
	"github.com/nvandessel/boxes/internal/logging"
	"github.com/nvandessel/boxes/internal/store"
	"github.com/nvandessel/boxes/internal/tictactoe"
)

// TicTacToeResult is the outcome of a self-play run.
type TicTacToeResult struct {
	RunID       string               `json:"run_id"`
	Status      string               `json:"status"`
	DoubleGames int64                `json:"double_games"`
	Underflows  int64                `json:"underflows"`
	Batches     []tictactoe.Batch    `json:"batches"`
	Milestones  tictactoe.Milestones `json:"milestones"`
}

type ticTacToeParams struct {
	Engine    config.EngineConfig    `json:"engine"`
	Outcomes  config.OutcomesConfig  `json:"outcomes"`
	TicTacToe config.TicTacToeConfig `json:"tictactoe"`
}

// RunTicTacToe plays cfg.TicTacToe.Games double-games between two fresh
// tables, alternating first move, and batches the results.
func (r *Runner) RunTicTacToe(ctx context.Context) (*TicTacToeResult, error) {
	cfg := r.opts.Config
	kind := constants.RunTicTacToe.String()

	rn, err := r.begin(ctx, kind, ticTacToeParams{cfg.Engine, cfg.Outcomes, cfg.TicTacToe})
	if err != nil {
		return nil, err
	}
	res := &TicTacToeResult{RunID: rn.id}

	runCtx, span := r.opts.Tracer.StartRun(ctx, rn.id, kind, cfg.Engine.Recorder, cfg.Engine.Seed, cfg.Engine.Exponent)
	runErr := r.playTicTacToe(runCtx, rn, res)
	r.opts.Tracer.EndRun(span, res.DoubleGames*2, res.Underflows, runErr)

	res.Milestones = tictactoe.Summarize(res.Batches)
	status, err := rn.finish(ctx, struct {
		DoubleGames int64                `json:"double_games"`
		Underflows  int64                `json:"underflows"`
		Milestones  tictactoe.Milestones `json:"milestones"`
	}{res.DoubleGames, res.Underflows, res.Milestones}, runErr)
	res.Status = status
	if runErr != nil {
		return res, runErr
	}
	return res, err
}

func (r *Runner) playTicTacToe(ctx context.Context, rn *run, res *TicTacToeResult) error {
	cfg := r.opts.Config
	ttt := cfg.TicTacToe

	ta, err := boxes.NewTable(constants.TicTacToeStates, constants.TicTacToeCells, ttt.Tokens, cfg.Engine.TableOptions()...)
	if err != nil {
		return err
	}
	defer ta.Close()
	tb, err := boxes.NewTable(constants.TicTacToeStates, constants.TicTacToeCells, ttt.Tokens, cfg.Engine.TableOptions()...)
	if err != nil {
		return err
	}
	defer tb.Close()

	arena := &tictactoe.Arena{
		Selector: boxes.NewSelector(boxes.NewRandomSource(cfg.Engine.Seed), boxes.SelectorConfig{Exponent: cfg.Engine.Exponent}),
		Recorder: boxes.Recorder(cfg.Engine.Recorder),
		Outcomes: tictactoe.Outcomes{Win: cfg.Outcomes.Win, Lose: cfg.Outcomes.Lose, Draw: cfg.Outcomes.Draw},
		MaxTurns: ttt.MaxTurns,
	}

	var (
		batch      tictactoe.Batch
		batchStart time.Time
		batchSpan  trace.Span
	)
	closeBatch := func() error {
		r.opts.Tracer.EndBatch(batchSpan, batch.Games, batch.Underflows)
		res.Batches = append(res.Batches, batch)
		return rn.batch(ctx, store.Batch{
			Index:      batch.Index,
			Start:      batch.Start,
			Episodes:   batch.Games,
			FirstWins:  batch.FirstWins,
			SecondWins: batch.SecondWins,
			Draws:      batch.Draws,
			Underflows: batch.Underflows,
		}, r.opts.Now().Sub(batchStart))
	}

	for i := int64(0); i < int64(ttt.Games); i++ {
		if ctx.Err() != nil {
			break
		}
		if i%int64(ttt.BatchSize) == 0 {
			batch = tictactoe.Batch{Index: len(res.Batches), Start: i}
			batchStart = r.opts.Now()
			_, batchSpan = r.opts.Tracer.StartBatch(ctx, batch.Index, i)
		}

		games, err := arena.DoubleGame(ta, tb)
		if err != nil {
			r.opts.Tracer.EndBatch(batchSpan, batch.Games, batch.Underflows)
			return fmt.Errorf("double-game %d: %w", i, err)
		}
		for k, g := range games {
			batch.Add(g)
			res.Underflows += int64(g.Underflows)
			r.observeGame(rn, 2*i+int64(k), g)
		}
		res.DoubleGames++

		if res.DoubleGames%int64(ttt.BatchSize) == 0 {
			if err := closeBatch(); err != nil {
				return err
			}
		}
	}

	// Flush a partial batch left by cancellation or an uneven game count.
	if batch.Games > 0 && res.DoubleGames%int64(ttt.BatchSize) != 0 {
		return closeBatch()
	}
	return nil
}

func (r *Runner) observeGame(rn *run, index int64, g tictactoe.Game) {
	outcome := g.Result.String()
	r.opts.Metrics.ObserveEpisode(rn.kind, outcome, g.Underflows)
	if g.Underflows > 0 {
		r.opts.Logger.Debug("underflow", "run_id", rn.id, "game", index, "refills", g.Underflows)
	}
	r.opts.Episodes.Log(logging.Episode{
		RunID:      rn.id,
		Kind:       rn.kind,
		Index:      index,
		Outcome:    outcome,
		Moves:      g.Moves,
		Underflows: g.Underflows,
	})
	if r.opts.Logger.Enabled(context.Background(), logging.LevelTrace) {
		r.opts.Logger.Log(context.Background(), logging.LevelTrace, "game",
			"run_id", rn.id, "game", index, "result", outcome, "board", g.Board.String())
	}
}
