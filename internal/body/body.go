// Package body defines the point masses the simulator moves around.
package body

import (
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/geom"
)

// Body is a point mass. IDs are unique within a population; merge products
// carry negative IDs. Radius is only used for rendering.
//
// Force is overwritten once per step by whichever evaluator owns the body
// and is never accumulated across steps.
type Body struct {
	ID       int           `json:"id"`
	Mass     float64       `json:"mass"`
	Radius   float64       `json:"radius"`
	Position vector.Vector `json:"position"`
	Velocity vector.Vector `json:"velocity"`
	Force    vector.Vector `json:"force"`
}

// New creates a body with a zeroed force slot of the same dimension as pos.
func New(id int, mass, radius float64, pos, vel vector.Vector) Body {
	return Body{
		ID:       id,
		Mass:     mass,
		Radius:   radius,
		Position: pos,
		Velocity: vel,
		Force:    geom.Zero(len(pos)),
	}
}

// Inert reports whether the body has no physical contribution.
func (b *Body) Inert() bool { return b.Mass <= 0 }

func (b *Body) Dimensions() int { return len(b.Position) }

// Kick applies velocity += force/mass * dt.
func (b *Body) Kick(dt float64) {
	if b.Inert() {
		return
	}
	vector.In(b.Velocity).Add(b.Force.Scale(dt / b.Mass))
}

// Drift applies position += velocity * dt.
func (b *Body) Drift(dt float64) {
	vector.In(b.Position).Add(b.Velocity.Scale(dt))
}

// CheckFinite returns the name of the first vector holding a NaN.
func (b *Body) CheckFinite() (string, bool) {
	switch {
	case geom.HasNaN(b.Position):
		return "position", false
	case geom.HasNaN(b.Velocity):
		return "velocity", false
	case geom.HasNaN(b.Force):
		return "force", false
	}
	return "", true
}

// Clone returns a copy that shares no vector storage with b.
func (b *Body) Clone() Body {
	c := *b
	c.Position = geom.Clone(b.Position)
	c.Velocity = geom.Clone(b.Velocity)
	c.Force = geom.Clone(b.Force)
	return c
}

func CloneAll(bodies []Body) []Body {
	out := make([]Body, len(bodies))
	for i := range bodies {
		out[i] = bodies[i].Clone()
	}
	return out
}

func TotalMass(bodies []Body) float64 {
	total := 0.0
	for i := range bodies {
		total += bodies[i].Mass
	}
	return total
}

func IDs(bodies []Body) []int {
	ids := make([]int, len(bodies))
	for i := range bodies {
		ids[i] = bodies[i].ID
	}
	return ids
}

// Positions returns the position vectors of bodies without copying them.
func Positions(bodies []Body) []vector.Vector {
	out := make([]vector.Vector, len(bodies))
	for i := range bodies {
		out[i] = bodies[i].Position
	}
	return out
}
