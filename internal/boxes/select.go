package boxes

import (
	"fmt"
	"math"
)

// SelectorConfig configures action selection.
type SelectorConfig struct {
	// Exponent reweights each eligible action as (w/mean)^Exponent before
	// the draw. 1 is classic proportional BOXES; above 1 sharpens toward
	// heavy actions (exploitation), below 1 flattens (exploration).
	Exponent float64
}

// DefaultSelectorConfig returns classic proportional selection.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{Exponent: 1}
}

// Selection is the result of one draw.
type Selection struct {
	Action int

	// Underflow is true when the eligible pool was at or below the table's
	// threshold and was refilled before drawing.
	Underflow bool
}

// Selector draws actions from a Table using an injected random source.
type Selector struct {
	rng    RandomSource
	config SelectorConfig

	eff    []float64 // scratch, reused across calls
	scaled []float64
}

// NewSelector creates a selector drawing from rng.
func NewSelector(rng RandomSource, config SelectorConfig) *Selector {
	return &Selector{rng: rng, config: config}
}

// Select draws one admissible action for state using the configured exponent.
func (s *Selector) Select(t *Table, state int, mask Mask) (Selection, error) {
	return s.SelectWithExponent(t, state, mask, s.config.Exponent)
}

// SelectWithExponent draws one admissible action for state, reweighting
// eligible actions with the given exploration exponent.
//
// The draw walks eligible actions in ascending index order, so a fixed
// random stream always produces the same action for the same weights.
func (s *Selector) SelectWithExponent(t *Table, state int, mask Mask, exponent float64) (Selection, error) {
	if err := t.checkState(state); err != nil {
		return Selection{}, err
	}
	if err := mask.validate(t.actions); err != nil {
		return Selection{}, err
	}
	if math.IsNaN(exponent) || math.IsInf(exponent, 0) || exponent < 0 {
		return Selection{}, fmt.Errorf("%w: exploration exponent must be finite and non-negative, got %v", ErrInvalidConfiguration, exponent)
	}
	if mask.Count(t.actions) == 0 {
		return Selection{}, fmt.Errorf("%w: state %d", ErrNoLegalAction, state)
	}

	row := t.row(state)
	var sel Selection

	raw, eligible := eligibleSum(row, mask)
	if raw <= t.threshold {
		for a := range row {
			if mask.Permits(a) {
				row[a] = t.initial
			}
		}
		raw, _ = eligibleSum(row, mask)
		t.underflows++
		sel.Underflow = true
	}

	eff := s.effectiveWeights(row, mask, raw, eligible, exponent)
	var total float64
	for a, w := range eff {
		if mask.Permits(a) {
			total += w
		}
	}
	if math.IsInf(total, 1) {
		eff, total = s.rescale(eff, mask)
	}

	remaining := s.rng.Float64() * total
	last := -1
	for a, w := range eff {
		if !mask.Permits(a) {
			continue
		}
		last = a
		remaining -= w
		if remaining <= 0 {
			sel.Action = a
			return sel, nil
		}
	}
	// Rounding can leave a sliver past the final eligible action.
	sel.Action = last
	return sel, nil
}

// effectiveWeights returns the per-action weights used for the draw. With
// exponent 1 these are the raw weights themselves.
func (s *Selector) effectiveWeights(row []float64, mask Mask, raw float64, eligible int, exponent float64) []float64 {
	if exponent == 1 {
		return row
	}
	if cap(s.eff) < len(row) {
		s.eff = make([]float64, len(row))
	}
	eff := s.eff[:len(row)]

	mean := raw / float64(eligible)
	for a, w := range row {
		switch {
		case !mask.Permits(a):
			eff[a] = 0
		case mean <= 0:
			eff[a] = 1
		default:
			eff[a] = math.Pow(w/mean, exponent)
		}
	}
	return eff
}

// rescale divides eligible weights by their maximum so their sum is finite.
// When some weights are +Inf those actions share the draw equally and every
// finite weight drops to zero.
func (s *Selector) rescale(eff []float64, mask Mask) ([]float64, float64) {
	var max float64
	for a, w := range eff {
		if mask.Permits(a) && w > max {
			max = w
		}
	}
	if cap(s.scaled) < len(eff) {
		s.scaled = make([]float64, len(eff))
	}
	out := s.scaled[:len(eff)]
	var total float64
	for a, w := range eff {
		switch {
		case !mask.Permits(a):
			out[a] = 0
		case math.IsInf(max, 1):
			out[a] = 0
			if math.IsInf(w, 1) {
				out[a] = 1
			}
		default:
			out[a] = w / max
		}
		total += out[a]
	}
	return out, total
}

// eligibleSum returns the total raw weight and count of permitted actions.
func eligibleSum(row []float64, mask Mask) (float64, int) {
	var sum float64
	n := 0
	for a, w := range row {
		if mask.Permits(a) {
			sum += w
			n++
		}
	}
	return sum, n
}
