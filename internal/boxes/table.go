package boxes

import (
	"fmt"
	"math"
)

const (
	// DefaultTokenMin is the floor every learned weight is clamped to.
	// Weights never reach zero or go negative once learning has touched them.
	DefaultTokenMin = 1e-6

	// DefaultUnderflowThreshold is the eligible weight mass at or below which
	// a state's pool is refilled with the initial weight.
	DefaultUnderflowThreshold = 1.0
)

// Table is the dense state x action weight matrix: the learned policy.
//
// Learned weights live in [TokenMin, MaxWeight]. The ceiling sits just below
// math.MaxFloat64/actions, so a full row always sums to a finite value.
type Table struct {
	states    int
	actions   int
	initial   float64
	tokenMin  float64
	maxWeight float64
	threshold float64

	weights    []float64 // row-major, states*actions
	underflows int64
	attached   int // open trajectories bound to this table
	closed     bool
}

// TableOption customizes a Table at construction.
type TableOption func(*Table)

// WithTokenMin sets the learning floor. It must be positive.
func WithTokenMin(min float64) TableOption {
	return func(t *Table) { t.tokenMin = min }
}

// WithUnderflowThreshold sets the eligible-mass threshold that triggers a
// refill during selection. It must be non-negative.
func WithUnderflowThreshold(threshold float64) TableOption {
	return func(t *Table) { t.threshold = threshold }
}

// NewTable creates a table with every weight set to initialWeight.
func NewTable(states, actions int, initialWeight float64, opts ...TableOption) (*Table, error) {
	if states <= 0 {
		return nil, fmt.Errorf("%w: state count must be positive, got %d", ErrInvalidConfiguration, states)
	}
	if actions <= 0 {
		return nil, fmt.Errorf("%w: action count must be positive, got %d", ErrInvalidConfiguration, actions)
	}
	if math.IsNaN(initialWeight) || math.IsInf(initialWeight, 0) || initialWeight < 0 ||
		initialWeight > maxWeight(actions) {
		return nil, fmt.Errorf("%w: initial weight must be in [0, MaxFloat64/actions], got %v", ErrInvalidConfiguration, initialWeight)
	}
	if states > math.MaxInt/actions {
		return nil, fmt.Errorf("%w: %d states x %d actions overflows", ErrInvalidConfiguration, states, actions)
	}

	t := &Table{
		states:    states,
		actions:   actions,
		initial:   initialWeight,
		tokenMin:  DefaultTokenMin,
		maxWeight: maxWeight(actions),
		threshold: DefaultUnderflowThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	if !(t.tokenMin > 0) || t.tokenMin > t.maxWeight {
		return nil, fmt.Errorf("%w: token floor must be in (0, MaxWeight], got %v", ErrInvalidConfiguration, t.tokenMin)
	}
	if math.IsNaN(t.threshold) || t.threshold < 0 {
		return nil, fmt.Errorf("%w: underflow threshold must be non-negative, got %v", ErrInvalidConfiguration, t.threshold)
	}

	t.weights = make([]float64, states*actions)
	for i := range t.weights {
		t.weights[i] = initialWeight
	}
	return t, nil
}

// maxWeight rounds MaxFloat64/actions down, which keeps actions*max <= MaxFloat64.
func maxWeight(actions int) float64 {
	return math.Nextafter(math.MaxFloat64/float64(actions), 0)
}

// States returns the number of states.
func (t *Table) States() int { return t.states }

// Actions returns the number of actions per state.
func (t *Table) Actions() int { return t.actions }

// InitialWeight returns the construction and refill weight.
func (t *Table) InitialWeight() float64 { return t.initial }

// TokenMin returns the learning floor.
func (t *Table) TokenMin() float64 { return t.tokenMin }

// MaxWeight returns the ceiling learned weights saturate at.
func (t *Table) MaxWeight() float64 { return t.maxWeight }

// UnderflowThreshold returns the refill threshold.
func (t *Table) UnderflowThreshold() float64 { return t.threshold }

// Underflows returns how many times selection has refilled a pool.
func (t *Table) Underflows() int64 { return t.underflows }

// Closed reports whether Close has succeeded.
func (t *Table) Closed() bool { return t.closed }

// Weight returns the weight of one state/action cell.
func (t *Table) Weight(state, action int) (float64, error) {
	if err := t.checkCell(state, action); err != nil {
		return 0, err
	}
	return t.weights[t.offset(state, action)], nil
}

// Row returns a copy of the weights for state.
func (t *Table) Row(state int) ([]float64, error) {
	if err := t.checkState(state); err != nil {
		return nil, err
	}
	out := make([]float64, t.actions)
	copy(out, t.row(state))
	return out, nil
}

// Snapshot returns a row-major copy of every weight.
func (t *Table) Snapshot() ([]float64, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidConfiguration)
	}
	if t.closed {
		return nil, fmt.Errorf("%w: table", ErrClosed)
	}
	out := make([]float64, len(t.weights))
	copy(out, t.weights)
	return out, nil
}

// Close releases the weight storage. It fails with ErrOwnership while any
// open trajectory still references the table. Closing twice is a no-op.
func (t *Table) Close() error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidConfiguration)
	}
	if t.closed {
		return nil
	}
	if t.attached > 0 {
		return fmt.Errorf("%w: %d open trajectories reference the table", ErrOwnership, t.attached)
	}
	t.weights = nil
	t.closed = true
	return nil
}

func (t *Table) attach() error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidConfiguration)
	}
	if t.closed {
		return fmt.Errorf("%w: table", ErrClosed)
	}
	t.attached++
	return nil
}

func (t *Table) detach() {
	if t.attached > 0 {
		t.attached--
	}
}

func (t *Table) offset(state, action int) int {
	return state*t.actions + action
}

func (t *Table) row(state int) []float64 {
	base := state * t.actions
	return t.weights[base : base+t.actions]
}

func (t *Table) checkState(state int) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidConfiguration)
	}
	if t.closed {
		return fmt.Errorf("%w: table", ErrClosed)
	}
	if state < 0 || state >= t.states {
		return fmt.Errorf("%w: state %d not in [0, %d)", ErrIndex, state, t.states)
	}
	return nil
}

func (t *Table) checkCell(state, action int) error {
	if err := t.checkState(state); err != nil {
		return err
	}
	if action < 0 || action >= t.actions {
		return fmt.Errorf("%w: action %d not in [0, %d)", ErrIndex, action, t.actions)
	}
	return nil
}
