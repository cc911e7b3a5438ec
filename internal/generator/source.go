// Package generator creates initial populations. Every body it returns has
// a unique non-negative id and strictly positive mass, and the same seed
// always yields the same population.
package generator

import "golang.org/x/exp/rand"

// Source is the deterministic random source the generators draw from.
type Source struct {
	rnd *rand.Rand
}

func NewSource(seed uint64) *Source {
	return &Source{rnd: rand.New(rand.NewSource(seed))}
}

// Range returns a uniform integer in [lo, hi). It returns lo when the range
// is empty.
func (s *Source) Range(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rnd.Intn(hi-lo)
}

// Float64 returns a uniform float in [0, 1).
func (s *Source) Float64() float64 {
	return s.rnd.Float64()
}

// Between returns a uniform float in [lo, hi).
func (s *Source) Between(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rnd.Float64()
}

// Normal returns a standard normally distributed float.
func (s *Source) Normal() float64 {
	return s.rnd.NormFloat64()
}
