package gravity

import (
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
)

// KineticEnergy returns the summed ½mv² of the population.
func KineticEnergy(bodies []body.Body) float64 {
	e := 0.0
	for i := range bodies {
		if bodies[i].Inert() {
			continue
		}
		v := bodies[i].Velocity.Magnitude()
		e += 0.5 * bodies[i].Mass * v * v
	}
	return e
}

// PotentialEnergy returns the softened pairwise potential energy. It is an
// O(n²) sum.
func (l Law) PotentialEnergy(bodies []body.Body) float64 {
	e := 0.0
	for i := range bodies {
		if bodies[i].Inert() {
			continue
		}
		for j := i + 1; j < len(bodies); j++ {
			if bodies[j].Inert() {
				continue
			}
			d := geom.Distance(bodies[i].Position, bodies[j].Position)
			e += l.Potential(bodies[i].Mass, bodies[j].Mass, d)
		}
	}
	return e
}

func (l Law) TotalEnergy(bodies []body.Body) float64 {
	return KineticEnergy(bodies) + l.PotentialEnergy(bodies)
}
