package boxes

import "fmt"

// Step is one recorded decision.
type Step struct {
	State  int
	Action int

	// Mask is a private snapshot of the legality mask at decision time, or
	// nil if none was supplied.
	Mask Mask
}

// Trajectory records the decisions of one episode for later learning.
//
// Block and Chain implement it with different cost profiles; learning from
// either yields identical weights for identical appends.
type Trajectory interface {
	// Table returns the table the trajectory is bound to, or nil once closed.
	Table() *Table

	// Append records a decision. The mask, if any, is copied.
	Append(state, action int, mask Mask) error

	// Truncate keeps only the keepLast most recent steps and returns the
	// number dropped. It is a no-op returning 0 when Len() <= keepLast.
	Truncate(keepLast int) int

	// Len returns the number of recorded steps.
	Len() int

	// Each calls fn for every step until fn returns false.
	Each(fn func(Step) bool)

	// Reset drops every step but keeps the trajectory open for reuse.
	Reset()

	// Close releases the recorder and detaches it from its table.
	// Closing twice is a no-op.
	Close() error
}

// Recorder names a Trajectory implementation.
type Recorder string

const (
	RecorderBlock Recorder = "block"
	RecorderChain Recorder = "chain"
)

// Valid reports whether r names a known recorder.
func (r Recorder) Valid() bool {
	return r == RecorderBlock || r == RecorderChain
}

// NewTrajectory creates an empty recorder of the given kind bound to t.
func NewTrajectory(t *Table, kind Recorder) (Trajectory, error) {
	switch kind {
	case RecorderBlock:
		return NewBlock(t)
	case RecorderChain:
		return NewChain(t)
	default:
		return nil, fmt.Errorf("%w: unknown recorder %q", ErrInvalidConfiguration, kind)
	}
}

// checkStep validates a step against the bound table.
func checkStep(t *Table, state, action int, mask Mask) error {
	if t == nil {
		return fmt.Errorf("%w: trajectory", ErrClosed)
	}
	if err := t.checkCell(state, action); err != nil {
		return err
	}
	return mask.validate(t.actions)
}
