package metrics

import (
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
)

// CenterOfMass returns the mass-weighted mean position of the non-inert
// bodies. ok is false when there are none.
func CenterOfMass(bodies []body.Body) (com vector.Vector, ok bool) {
	if len(bodies) == 0 {
		return nil, false
	}
	com = geom.Zero(bodies[0].Dimensions())
	total := 0.0
	for i := range bodies {
		if bodies[i].Inert() {
			continue
		}
		vector.In(com).Add(bodies[i].Position.Scale(bodies[i].Mass))
		total += bodies[i].Mass
	}
	if total == 0 {
		return nil, false
	}
	vector.In(com).Scale(1 / total)
	return com, true
}

// TotalMomentum returns Σ m·v.
func TotalMomentum(bodies []body.Body) vector.Vector {
	if len(bodies) == 0 {
		return nil
	}
	p := geom.Zero(bodies[0].Dimensions())
	for i := range bodies {
		vector.In(p).Add(bodies[i].Velocity.Scale(bodies[i].Mass))
	}
	return p
}

// Momentum reports the magnitude of the total momentum at the last step.
type Momentum struct {
	last float64
}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Observe(_ int, bodies []body.Body) {
	if p := TotalMomentum(bodies); p != nil {
		m.last = p.Magnitude()
	} else {
		m.last = 0
	}
}

func (m *Momentum) Value() float64 { return m.last }
func (m *Momentum) Reset()         { m.last = 0 }

// BodyCount reports the population size at the last step; it drops as
// bodies merge.
type BodyCount struct {
	count int
}

func NewBodyCount() *BodyCount { return &BodyCount{} }

func (c *BodyCount) Name() string                      { return "bodies" }
func (c *BodyCount) Observe(_ int, bodies []body.Body) { c.count = len(bodies) }
func (c *BodyCount) Value() float64                    { return float64(c.count) }
func (c *BodyCount) Reset()                            { c.count = 0 }

// TotalMass reports the summed mass at the last step. Merging damps mass,
// so this decreases over a run with merges.
type TotalMass struct {
	mass float64
}

func NewTotalMass() *TotalMass { return &TotalMass{} }

func (t *TotalMass) Name() string                      { return "total_mass" }
func (t *TotalMass) Observe(_ int, bodies []body.Body) { t.mass = body.TotalMass(bodies) }
func (t *TotalMass) Value() float64                    { return t.mass }
func (t *TotalMass) Reset()                            { t.mass = 0 }
