package boxes

import "math/rand/v2"

// RandomSource supplies the uniform draws used for weighted sampling.
// Float64 must return a value in [0, 1).
//
// *rand.Rand from math/rand/v2 satisfies this interface.
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a deterministic PCG-backed source for seed.
// The same seed always yields the same stream.
func NewRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
