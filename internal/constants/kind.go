package constants

// RunKind identifies which driver produced a training run.
type RunKind string

const (
	// RunTicTacToe is two tables learning tic-tac-toe by self-play.
	RunTicTacToe RunKind = "tictactoe"

	// RunBallTrack is one table learning to hold a ball at a setpoint.
	RunBallTrack RunKind = "balltrack"
)

// Valid returns true if the kind is a recognized value.
func (k RunKind) Valid() bool {
	switch k {
	case RunTicTacToe, RunBallTrack:
		return true
	}
	return false
}

// String returns the string representation of the kind.
func (k RunKind) String() string {
	return string(k)
}
