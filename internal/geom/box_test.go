package geom

import (
	"math"
	"testing"

	"github.com/quartercastle/vector"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func TestBoundingBox_Quadrant(t *testing.T) {
	bb := NewBoundingBox(2, 0, 10)
	for _, test := range []struct {
		Name string
		Pos  vector.Vector
		Want int
	}{
		{"lower left", vector.Vector{1, 1}, 0},
		{"lower right", vector.Vector{9, 1}, 1},
		{"upper left", vector.Vector{1, 9}, 2},
		{"upper right", vector.Vector{9, 9}, 3},
		{"on center goes high", vector.Vector{5, 5}, 3},
		{"outside still classified", vector.Vector{-100, 100}, 2},
	} {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Want, bb.Quadrant(test.Pos))
		})
	}
}

func TestBoundingBox_Child(t *testing.T) {
	assert := assert.New(t)
	bb := NewBoundingBox(3, -4, 4)

	c := bb.Child(0)
	assert.Equal(vector.Vector{-4, -4, -4}, c.Min)
	assert.Equal(vector.Vector{0, 0, 0}, c.Max)

	c = bb.Child(0b101)
	assert.Equal(vector.Vector{0, -4, 0}, c.Min)
	assert.Equal(vector.Vector{4, 0, 4}, c.Max)

	// the parent must not be modified
	assert.Equal(vector.Vector{-4, -4, -4}, bb.Min)
	assert.Equal(vector.Vector{4, 4, 4}, bb.Max)
}

func TestBoundingBox_ChildContainsQuadrant(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for _, d := range []int{2, 3} {
		bb := NewBoundingBox(d, -50, 150)
		for n := 0; n < 1000; n++ {
			pos := make(vector.Vector, d)
			for i := range pos {
				pos[i] = -50 + 200*rnd.Float64()
			}
			// descend a few levels to exercise non-root boxes
			box := bb
			for level := 0; level < 6; level++ {
				next := box.Child(box.Quadrant(pos))
				if !assert.True(t, next.Contains(pos), "d=%d level=%d pos=%v box=%v", d, level, pos, box) {
					return
				}
				box = next
			}
		}
	}
}

func TestBoundingBox_SizeAndCenter(t *testing.T) {
	assert := assert.New(t)
	bb := BoundingBox{Min: vector.Vector{0, -2}, Max: vector.Vector{4, 6}}
	assert.Equal(8.0, bb.Size())
	assert.Equal(vector.Vector{2, 2}, bb.Center())
	assert.Equal(2, bb.Dimensions())
}

func TestEnclosing(t *testing.T) {
	assert := assert.New(t)

	bb := Enclosing(2, []vector.Vector{{0, 0}, {10, 2}, {4, -6}}, 0)
	assert.InDelta(10.0, bb.Size(), 1e-12)
	for _, p := range []vector.Vector{{0, 0}, {10, 2}, {4, -6}} {
		assert.True(bb.Contains(p))
	}
	// hypercube: every edge has the same length
	assert.InDelta(bb.Max[0]-bb.Min[0], bb.Max[1]-bb.Min[1], 1e-12)

	padded := Enclosing(2, []vector.Vector{{0, 0}, {10, 0}}, 0.5)
	assert.InDelta(15.0, padded.Size(), 1e-12)

	unit := Enclosing(3, nil, 0.1)
	assert.Equal(1.0, unit.Size())

	single := Enclosing(2, []vector.Vector{{3, 3}}, 0.1)
	assert.True(single.Contains(vector.Vector{3, 3}))
	assert.Equal(1.0, single.Size())
}

func TestDirection(t *testing.T) {
	assert := assert.New(t)

	dir := Direction(vector.Vector{0, 0}, vector.Vector{3, 4}, 1e-9)
	assert.InDelta(0.6, dir[0], 1e-12)
	assert.InDelta(0.8, dir[1], 1e-12)

	assert.Equal(vector.Vector{0, 0}, Direction(vector.Vector{1, 1}, vector.Vector{1, 1}, 1e-9))
	assert.Equal(vector.Vector{0, 0, 0}, Direction(vector.Vector{0, 0, 0}, vector.Vector{1e-12, 0, 0}, 1e-9))
}

func TestVectorHelpers(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(5.0, Distance(vector.Vector{1, 1}, vector.Vector{4, 5}))
	assert.False(HasNaN(vector.Vector{1, 2, 3}))
	assert.True(HasNaN(vector.Vector{1, math.NaN()}))

	avg := WeightedAverage(vector.Vector{0, 0}, 1, vector.Vector{4, 8}, 3)
	assert.Equal(vector.Vector{3, 6}, avg)

	v := vector.Vector{1, 2}
	c := Clone(v)
	c[0] = 9
	assert.Equal(1.0, v[0])
	assert.Equal(vector.Vector{0, 0, 0}, Zero(3))
}
