package balltrack

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/constants"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		n, want   int
	}{
		{0, 0, 1, 5, 0},
		{0.19, 0, 1, 5, 0},
		{0.2, 0, 1, 5, 1},
		{0.99, 0, 1, 5, 4},
		{1, 0, 1, 5, 4},
		{-0.5, 0, 1, 5, 0},
		{3, 0, 1, 5, 4},
		{0, -0.2, 0.2, 5, 2},
		{-0.2, -0.2, 0.2, 5, 0},
		{0.2, -0.2, 0.2, 5, 4},
	}
	for _, tt := range tests {
		if got := quantize(tt.v, tt.lo, tt.hi, tt.n); got != tt.want {
			t.Errorf("quantize(%v, %v, %v, %d) = %d, want %d", tt.v, tt.lo, tt.hi, tt.n, got, tt.want)
		}
	}
}

func TestObserver_States(t *testing.T) {
	tests := []struct {
		ball, track, history, want int
	}{
		{5, 5, 1, 25},
		{5, 5, 3, 15625},
		{10, 10, 2, 10000},
		{3, 3, 4, 6561},
	}
	for _, tt := range tests {
		o := NewObserver(tt.ball, tt.track, tt.history)
		if got := o.States(); got != tt.want {
			t.Errorf("States(%d, %d, %d) = %d, want %d", tt.ball, tt.track, tt.history, got, tt.want)
		}
	}
}

func TestStateCount_Cap(t *testing.T) {
	tests := []struct {
		name                 string
		ball, track, history int
		want                 int
		wantErr              bool
	}{
		{name: "default", ball: 5, track: 5, history: 1, want: 25},
		{name: "at cap", ball: 32, track: 32, history: 2, want: constants.MaxBallTrackStates},
		{name: "history 4", ball: 5, track: 5, history: 4, want: 390625},
		{name: "history 6 too large", ball: 5, track: 5, history: 6, wantErr: true},
		{name: "history 14 wraps int", ball: 5, track: 5, history: 14, wantErr: true},
		{name: "history 20 goes negative", ball: 5, track: 5, history: 20, wantErr: true},
		{name: "huge bins", ball: math.MaxInt / 2, track: 3, history: 1, wantErr: true},
		{name: "zero history", ball: 5, track: 5, history: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StateCount(tt.ball, tt.track, tt.history)
			if tt.wantErr {
				if !errors.Is(err, boxes.ErrInvalidConfiguration) {
					t.Fatalf("StateCount = %d, %v; want ErrInvalidConfiguration", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("StateCount: %v", err)
			}
			if got != tt.want {
				t.Errorf("StateCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestObserver_StateEncoding(t *testing.T) {
	o := NewObserver(5, 5, 2)
	p := NewPhysics(DefaultParams())

	// ball bin 4, track bin 2 (level)
	p.X, p.Angle = 0.9, 0
	o.Observe(p)
	// window: [(0,0), (4,2)] -> 0 + 0*5 + 4*25 + 2*125
	if got, want := o.State(), 4*25+2*125; got != want {
		t.Fatalf("State = %d, want %d", got, want)
	}

	// ball bin 1, track bin 0
	p.X, p.Angle = 0.3, -0.2
	o.Observe(p)
	// window: [(4,2), (1,0)] -> 4 + 2*5 + 1*25 + 0*125
	if got, want := o.State(), 4+2*5+1*25; got != want {
		t.Errorf("State = %d, want %d", got, want)
	}
	if o.State() >= o.States() {
		t.Errorf("state %d out of range %d", o.State(), o.States())
	}
}
