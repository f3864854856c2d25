package tictactoe

import (
	"errors"
	"testing"

	"github.com/nvandessel/boxes/internal/boxes"
)

func TestBoard_State(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		want  int
	}{
		{"empty", Board{}, 0},
		{"first in corner", Board{First}, 1},
		{"second in corner", Board{Second}, 2},
		{"first in center", Board{4: First}, 81},
		{"second in last", Board{8: Second}, 13122},
		{"all second", Board{Second, Second, Second, Second, Second, Second, Second, Second, Second}, 19682},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.board.State(); got != tt.want {
				t.Errorf("State() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBoard_Mask(t *testing.T) {
	b := Board{0: First, 4: Second, 8: First}
	m := b.Mask()
	for i, ok := range m {
		want := i != 0 && i != 4 && i != 8
		if ok != want {
			t.Errorf("mask[%d] = %v, want %v", i, ok, want)
		}
	}
}

func TestBoard_Winner(t *testing.T) {
	tests := []struct {
		name  string
		board Board
		want  Mark
	}{
		{"empty", Board{}, Empty},
		{"top row", Board{First, First, First}, First},
		{"column", Board{1: Second, 4: Second, 7: Second}, Second},
		{"diagonal", Board{0: First, 4: First, 8: First}, First},
		{"anti-diagonal", Board{2: Second, 4: Second, 6: Second}, Second},
		{"mixed line", Board{First, Second, First}, Empty},
		{"full draw", Board{First, Second, First, First, Second, Second, Second, First, First}, Empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.board.Winner(); got != tt.want {
				t.Errorf("Winner() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoard_PlayFallsThrough(t *testing.T) {
	b := Board{7: First, 8: Second, 0: First}

	sq, err := b.Play(7, Second)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sq != 1 {
		t.Errorf("Play(7) marked %d, want 1 (wrapping past 8 and 0)", sq)
	}
	if b[1] != Second {
		t.Errorf("square 1 = %v, want Second", b[1])
	}

	sq, err = b.Play(4, First)
	if err != nil || sq != 4 {
		t.Errorf("Play(4) = %d, %v; want 4", sq, err)
	}
}

func TestBoard_PlayErrors(t *testing.T) {
	var b Board
	if _, err := b.Play(9, First); !errors.Is(err, boxes.ErrIndex) {
		t.Errorf("Play(9) err = %v, want ErrIndex", err)
	}

	full := Board{First, Second, First, First, Second, Second, Second, First, First}
	if !full.Full() {
		t.Fatal("expected board to be full")
	}
	if _, err := full.Play(0, First); !errors.Is(err, boxes.ErrNoLegalAction) {
		t.Errorf("Play on full board err = %v, want ErrNoLegalAction", err)
	}
}

func TestBoard_String(t *testing.T) {
	b := Board{0: First, 4: Second}
	want := "X..\n.O.\n..."
	if got := b.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
