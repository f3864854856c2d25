package tictactoe

import (
	"fmt"

	"github.com/nvandessel/boxes/internal/boxes"
)

// Result is the outcome of one game from the point of view of move order.
type Result int

const (
	Draw Result = iota
	FirstWins
	SecondWins
)

func (r Result) String() string {
	switch r {
	case FirstWins:
		return "first"
	case SecondWins:
		return "second"
	default:
		return "draw"
	}
}

// Outcomes are the adjustments applied to each side's trajectory.
type Outcomes struct {
	Win  boxes.Adjustment
	Lose boxes.Adjustment
	Draw boxes.Adjustment
}

// Game is the record of one finished game.
type Game struct {
	Result     Result
	Moves      int
	Underflows int
	Board      Board
}

// Arena plays games between tables with a shared selector.
type Arena struct {
	Selector *boxes.Selector
	Recorder boxes.Recorder
	Outcomes Outcomes

	// MaxTurns caps the moves in a game. A game cut short is a draw.
	MaxTurns int
}

// Play runs one game with first moving first, then teaches both tables from
// their own moves. Each side records into a fresh trajectory that is closed
// before Play returns.
func (a *Arena) Play(first, second *boxes.Table) (Game, error) {
	var g Game
	if first == second {
		return g, fmt.Errorf("%w: a table cannot play itself", boxes.ErrOwnership)
	}

	t1, err := boxes.NewTrajectory(first, a.Recorder)
	if err != nil {
		return g, err
	}
	defer t1.Close()
	t2, err := boxes.NewTrajectory(second, a.Recorder)
	if err != nil {
		return g, err
	}
	defer t2.Close()

	sides := [2]struct {
		table *boxes.Table
		tr    boxes.Trajectory
		mark  Mark
	}{
		{first, t1, First},
		{second, t2, Second},
	}

	winner := Empty
	for g.Moves < a.MaxTurns && winner == Empty && !g.Board.Full() {
		side := sides[g.Moves%2]
		state := g.Board.State()
		mask := g.Board.Mask()

		pick, err := a.Selector.Select(side.table, state, mask)
		if err != nil {
			return g, fmt.Errorf("selecting move %d: %w", g.Moves+1, err)
		}
		if pick.Underflow {
			g.Underflows++
		}
		if err := side.tr.Append(state, pick.Action, mask); err != nil {
			return g, err
		}
		if _, err := g.Board.Play(pick.Action, side.mark); err != nil {
			return g, err
		}
		g.Moves++
		winner = g.Board.Winner()
	}

	adj1, adj2 := a.Outcomes.Draw, a.Outcomes.Draw
	switch winner {
	case First:
		g.Result = FirstWins
		adj1, adj2 = a.Outcomes.Win, a.Outcomes.Lose
	case Second:
		g.Result = SecondWins
		adj1, adj2 = a.Outcomes.Lose, a.Outcomes.Win
	}

	if err := first.UpdateTrajectory(t1, adj1); err != nil {
		return g, fmt.Errorf("teaching first player: %w", err)
	}
	if err := second.UpdateTrajectory(t2, adj2); err != nil {
		return g, fmt.Errorf("teaching second player: %w", err)
	}
	return g, nil
}

// DoubleGame plays a against b twice, alternating who moves first.
// The first game has a moving first.
func (a *Arena) DoubleGame(ta, tb *boxes.Table) ([2]Game, error) {
	var out [2]Game
	g, err := a.Play(ta, tb)
	if err != nil {
		return out, err
	}
	out[0] = g
	g, err = a.Play(tb, ta)
	if err != nil {
		return out, err
	}
	out[1] = g
	return out, nil
}
