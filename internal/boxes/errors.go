package boxes

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the returned errors wrap these with call-specific detail.
var (
	// ErrInvalidConfiguration reports bad construction or selector parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrIndex reports an out-of-range state or action, or a mask whose
	// length does not match the table's action count.
	ErrIndex = errors.New("index out of range")

	// ErrOwnership reports a table/trajectory ownership violation: closing a
	// table that still has open trajectories, or learning from a trajectory
	// recorded against a different table.
	ErrOwnership = errors.New("ownership violation")

	// ErrClosed reports use of a table or trajectory after Close.
	ErrClosed = errors.New("use of closed handle")

	// ErrNoLegalAction reports a mask that forbids every action.
	ErrNoLegalAction = errors.New("no legal action")
)
