package body

import (
	"math"
	"testing"

	"github.com/quartercastle/vector"
	"github.com/stretchr/testify/assert"
)

func TestBody_KickDrift(t *testing.T) {
	assert := assert.New(t)
	b := New(1, 2.0, 0.5, vector.Vector{0, 0}, vector.Vector{1, 0})
	b.Force = vector.Vector{0, 4}

	b.Kick(0.5)
	assert.Equal(vector.Vector{1, 1}, b.Velocity)

	b.Drift(2)
	assert.Equal(vector.Vector{2, 2}, b.Position)
}

func TestBody_InertIsNotKicked(t *testing.T) {
	b := New(1, 0, 0, vector.Vector{0, 0}, vector.Vector{0, 0})
	b.Force = vector.Vector{1, 1}
	b.Kick(1)
	assert.Equal(t, vector.Vector{0, 0}, b.Velocity)
	assert.True(t, b.Inert())
}

func TestBody_CheckFinite(t *testing.T) {
	for _, test := range []struct {
		Name  string
		Body  Body
		Field string
		OK    bool
	}{
		{"finite", New(0, 1, 1, vector.Vector{1, 2}, vector.Vector{3, 4}), "", true},
		{"position", New(0, 1, 1, vector.Vector{math.NaN(), 2}, vector.Vector{3, 4}), "position", false},
		{"velocity", New(0, 1, 1, vector.Vector{1, 2}, vector.Vector{3, math.NaN()}), "velocity", false},
		{"force", Body{Position: vector.Vector{0}, Velocity: vector.Vector{0}, Force: vector.Vector{math.NaN()}}, "force", false},
	} {
		t.Run(test.Name, func(t *testing.T) {
			field, ok := test.Body.CheckFinite()
			assert.Equal(t, test.OK, ok)
			assert.Equal(t, test.Field, field)
		})
	}
}

func TestBody_CloneIsDeep(t *testing.T) {
	assert := assert.New(t)
	orig := New(3, 1, 1, vector.Vector{1, 2, 3}, vector.Vector{0, 0, 0})
	c := orig.Clone()
	c.Position[0] = 99
	c.Velocity[1] = 99
	c.Force[2] = 99
	assert.Equal(vector.Vector{1, 2, 3}, orig.Position)
	assert.Equal(vector.Vector{0, 0, 0}, orig.Velocity)
	assert.Equal(vector.Vector{0, 0, 0}, orig.Force)
}

func TestPopulationHelpers(t *testing.T) {
	assert := assert.New(t)
	bodies := []Body{
		New(4, 1.5, 1, vector.Vector{0, 0}, vector.Vector{0, 0}),
		New(-2, 2.5, 1, vector.Vector{1, 1}, vector.Vector{0, 0}),
	}
	assert.Equal(4.0, TotalMass(bodies))
	assert.Equal([]int{4, -2}, IDs(bodies))
	assert.Len(Positions(bodies), 2)

	cloned := CloneAll(bodies)
	cloned[0].Position[0] = 7
	assert.Equal(0.0, bodies[0].Position[0])
}
