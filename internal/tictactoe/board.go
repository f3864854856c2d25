// Package tictactoe drives two BOXES tables playing tic-tac-toe against each
// other. The tables know nothing of the rules: they see a base-3 board code,
// a mask of empty squares, and a win, loss or draw at the end.
package tictactoe

import (
	"fmt"
	"strings"

	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/constants"
)

// Mark is the content of one square.
type Mark uint8

const (
	Empty Mark = iota
	First      // the player who moves first in a game
	Second
)

// Board is a 3x3 grid numbered
//
//	0 1 2
//	3 4 5
//	6 7 8
type Board [constants.TicTacToeCells]Mark

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {6, 4, 2},
}

// State encodes the board as sum(cell_i * 3^i), a value in [0, 19683).
func (b *Board) State() int {
	s, pow := 0, 1
	for _, m := range b {
		s += int(m) * pow
		pow *= 3
	}
	return s
}

// Mask returns the legal moves: every empty square.
func (b *Board) Mask() boxes.Mask {
	m := make(boxes.Mask, len(b))
	for i, c := range b {
		m[i] = c == Empty
	}
	return m
}

// Full reports whether no square is empty.
func (b *Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Winner returns the mark holding a complete line, or Empty.
func (b *Board) Winner() Mark {
	for _, l := range lines {
		if m := b[l[0]]; m != Empty && b[l[1]] == m && b[l[2]] == m {
			return m
		}
	}
	return Empty
}

// Play marks square, or the first empty square after it wrapping around
// the board, and returns the square actually marked.
func (b *Board) Play(square int, m Mark) (int, error) {
	if square < 0 || square >= len(b) {
		return 0, fmt.Errorf("%w: square %d", boxes.ErrIndex, square)
	}
	for i := range b {
		sq := (square + i) % len(b)
		if b[sq] == Empty {
			b[sq] = m
			return sq, nil
		}
	}
	return 0, fmt.Errorf("%w: board is full", boxes.ErrNoLegalAction)
}

// String renders the board as three rows using X for the first player.
func (b *Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		switch c {
		case First:
			sb.WriteByte('X')
		case Second:
			sb.WriteByte('O')
		default:
			sb.WriteByte('.')
		}
		if i%3 == 2 && i != len(b)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
