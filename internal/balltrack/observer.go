package balltrack

import (
	"fmt"
	"math"

	"github.com/nvandessel/boxes/internal/boxes"
	"github.com/nvandessel/boxes/internal/constants"
)

// Observer quantizes ball position and track angle and keeps the last
// History observations. The encoded window is the table state.
type Observer struct {
	ballStates  int
	trackStates int
	ball        []int // oldest first
	track       []int
}

// StateCount returns (ballStates*trackStates)^history, the number of
// distinct encoded windows. Counts above constants.MaxBallTrackStates,
// including any that would overflow int, are rejected.
func StateCount(ballStates, trackStates, history int) (int, error) {
	if ballStates <= 0 || trackStates <= 0 || history <= 0 {
		return 0, fmt.Errorf("%w: balltrack dimensions must be positive", boxes.ErrInvalidConfiguration)
	}
	limit := constants.MaxBallTrackStates
	if ballStates > limit/trackStates {
		return 0, fmt.Errorf("%w: %dx%d observation exceeds %d states",
			boxes.ErrInvalidConfiguration, ballStates, trackStates, limit)
	}
	per := ballStates * trackStates
	n := 1
	for i := 0; i < history; i++ {
		if n > limit/per {
			return 0, fmt.Errorf("%w: (%d*%d)^%d exceeds %d states",
				boxes.ErrInvalidConfiguration, ballStates, trackStates, history, limit)
		}
		n *= per
	}
	return n, nil
}

// NewObserver creates an observer with an all-zero history.
func NewObserver(ballStates, trackStates, history int) *Observer {
	return &Observer{
		ballStates:  ballStates,
		trackStates: trackStates,
		ball:        make([]int, history),
		track:       make([]int, history),
	}
}

// States returns the number of distinct encoded windows, or math.MaxInt
// when the window is too large for a table.
func (o *Observer) States() int {
	n, err := StateCount(o.ballStates, o.trackStates, len(o.ball))
	if err != nil {
		return math.MaxInt
	}
	return n
}

// Observe slides the window and records the current quantized position
// and angle.
func (o *Observer) Observe(p *Physics) {
	copy(o.ball, o.ball[1:])
	copy(o.track, o.track[1:])
	last := len(o.ball) - 1
	o.ball[last] = quantize(p.X, 0, p.TrackLength, o.ballStates)
	o.track[last] = quantize(p.Angle, p.AngleMin, p.AngleMax, o.trackStates)
}

// State encodes the window, interleaving ball and track digits in mixed
// radix, oldest observation least significant.
func (o *Observer) State() int {
	s, base := 0, 1
	for i := range o.ball {
		s += o.ball[i] * base
		base *= o.ballStates
		s += o.track[i] * base
		base *= o.trackStates
	}
	return s
}

// quantize maps v in [lo, hi] onto n bins, clamping out-of-range values.
func quantize(v, lo, hi float64, n int) int {
	q := int((v - lo) * float64(n) / (hi - lo))
	if q < 0 {
		return 0
	}
	if q >= n {
		return n - 1
	}
	return q
}
