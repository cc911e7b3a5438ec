// Package gravity implements the softened inverse-square law and the
// exact pairwise evaluator the tree approximations are measured against.
package gravity

import (
	"math"

	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
)

// Law is Newtonian gravity with a softening length bounding the force as the
// separation goes to zero.
type Law struct {
	G         float64
	Softening float64
	// NormEpsilon is the separation below which the direction of a force is
	// taken to be the zero vector.
	NormEpsilon float64
}

// Force returns the force a mass otherMass at otherPos exerts on a mass m at
// pos: G*m*M/(d²+softening²) along the unit separation vector.
func (l Law) Force(pos vector.Vector, m float64, otherPos vector.Vector, otherMass float64) vector.Vector {
	dir := geom.Direction(pos, otherPos, l.NormEpsilon)
	d := geom.Distance(pos, otherPos)
	mag := l.G * m * otherMass / (d*d + l.Softening*l.Softening)
	vector.In(dir).Scale(mag)
	return dir
}

// Potential returns the softened potential energy of a pair at distance d.
func (l Law) Potential(m1, m2, d float64) float64 {
	return -l.G * m1 * m2 / math.Sqrt(d*d+l.Softening*l.Softening)
}

// Evaluator computes the net force on individual bodies of a population.
//
// Build prepares whatever acceleration structure the evaluator needs and
// must not run concurrently with anything else. After Build returns,
// ForceOn is safe for concurrent use as long as the population passed to
// Build is not modified.
type Evaluator interface {
	Name() string
	Build(bodies []body.Body)
	ForceOn(b *body.Body) vector.Vector
}

// Counter is implemented by evaluators that can report how many tree nodes
// (or bodies, for Direct) were visited while computing one force.
type Counter interface {
	ForceOnCounted(b *body.Body) (vector.Vector, int)
}
