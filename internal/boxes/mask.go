package boxes

import "fmt"

// Mask marks which actions are legal for one decision. Entry i is true when
// action i is permitted. A nil Mask permits every action.
type Mask []bool

// AllowOnly returns a mask of length n permitting only the listed actions.
// Out-of-range actions are ignored.
func AllowOnly(n int, actions ...int) Mask {
	m := make(Mask, n)
	for _, a := range actions {
		if a >= 0 && a < n {
			m[a] = true
		}
	}
	return m
}

// Permits reports whether action a is legal under the mask.
func (m Mask) Permits(a int) bool {
	if m == nil {
		return true
	}
	return a >= 0 && a < len(m) && m[a]
}

// Count returns the number of permitted actions out of n.
func (m Mask) Count(n int) int {
	if m == nil {
		return n
	}
	c := 0
	for _, ok := range m {
		if ok {
			c++
		}
	}
	return c
}

// Clone returns an independent copy. Cloning nil yields nil.
func (m Mask) Clone() Mask {
	if m == nil {
		return nil
	}
	out := make(Mask, len(m))
	copy(out, m)
	return out
}

func (m Mask) validate(actions int) error {
	if m != nil && len(m) != actions {
		return fmt.Errorf("%w: mask length %d, want %d", ErrIndex, len(m), actions)
	}
	return nil
}
