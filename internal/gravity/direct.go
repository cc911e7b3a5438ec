package gravity

import (
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
)

// Direct sums every pairwise interaction. It is O(n²) per step and serves as
// the reference the tree evaluators are compared with.
type Direct struct {
	Law    Law
	bodies []body.Body
}

func NewDirect(law Law) *Direct {
	return &Direct{Law: law}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Build(bodies []body.Body) {
	d.bodies = bodies
}

func (d *Direct) ForceOn(b *body.Body) vector.Vector {
	f, _ := d.ForceOnCounted(b)
	return f
}

func (d *Direct) ForceOnCounted(b *body.Body) (vector.Vector, int) {
	total := geom.Zero(b.Dimensions())
	visits := 0
	for i := range d.bodies {
		other := &d.bodies[i]
		if other.ID == b.ID || other.Inert() {
			continue
		}
		visits++
		vector.In(total).Add(d.Law.Force(b.Position, b.Mass, other.Position, other.Mass))
	}
	return total, visits
}
