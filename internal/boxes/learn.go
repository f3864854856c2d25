package boxes

import (
	"fmt"
	"math"
)

// Adjustment is an affine learning update: w = Add + Multiply*w.
//
// Multiply=1 with a small positive Add accumulates reward; Multiply<1 or a
// negative Add punishes. No normalization is applied. Results saturate at
// the table's MaxWeight instead of overflowing to +Inf.
type Adjustment struct {
	Add      float64 `json:"add" yaml:"add"`
	Multiply float64 `json:"multiply" yaml:"multiply"`
}

// Apply returns the adjusted weight floored at min and capped at
// math.MaxFloat64. NaN collapses to min.
func (adj Adjustment) Apply(w, min float64) float64 {
	return clampWeight(adj.Add+adj.Multiply*w, min, math.MaxFloat64)
}

func (t *Table) adjust(i int, adj Adjustment) {
	t.weights[i] = clampWeight(adj.Add+adj.Multiply*t.weights[i], t.tokenMin, t.maxWeight)
}

// UpdateCell applies adj to one state/action weight.
//
// mask is the legality snapshot taken when the action was chosen. It is
// checked for length but does not restrict the update: the chosen action is
// adjusted even if the snapshot marks it forbidden.
func (t *Table) UpdateCell(state, action int, mask Mask, adj Adjustment) error {
	if err := t.checkCell(state, action); err != nil {
		return err
	}
	if err := mask.validate(t.actions); err != nil {
		return err
	}
	t.adjust(t.offset(state, action), adj)
	return nil
}

// UpdateTrajectory applies adj to every recorded step of tr, in the
// recorder's iteration order. A pair recorded k times is adjusted k times.
func (t *Table) UpdateTrajectory(tr Trajectory, adj Adjustment) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidConfiguration)
	}
	if t.closed {
		return fmt.Errorf("%w: table", ErrClosed)
	}
	if tr == nil {
		return fmt.Errorf("%w: nil trajectory", ErrOwnership)
	}
	if tr.Table() != t {
		return fmt.Errorf("%w: trajectory is not bound to this table", ErrOwnership)
	}
	// Steps were validated on append against this table's fixed dimensions,
	// so the walk below cannot fail part-way.
	tr.Each(func(s Step) bool {
		t.adjust(t.offset(s.State, s.Action), adj)
		return true
	})
	return nil
}

// UpdateAll applies adj to every cell of the table, visited or not.
func (t *Table) UpdateAll(adj Adjustment) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidConfiguration)
	}
	if t.closed {
		return fmt.Errorf("%w: table", ErrClosed)
	}
	for i := range t.weights {
		t.adjust(i, adj)
	}
	return nil
}

// clampWeight bounds w to [min, max]. +Inf saturates at max.
func clampWeight(w, min, max float64) float64 {
	switch {
	case math.IsNaN(w) || w < min:
		return min
	case w > max:
		return max
	}
	return w
}
