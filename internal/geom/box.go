// Package geom holds the axis-aligned regions and small vector helpers the
// spatial trees are built from.
package geom

import (
	"math"

	"github.com/quartercastle/vector"
)

// BoundingBox is an axis-aligned region with Min[i] <= Max[i] in every
// dimension. Methods do not check that indexes stay inside the box; that is
// up to the caller.
type BoundingBox struct {
	Min vector.Vector
	Max vector.Vector
}

// NewBoundingBox returns a box spanning [lo, hi] in each of d dimensions.
func NewBoundingBox(d int, lo, hi float64) BoundingBox {
	bb := BoundingBox{Min: make(vector.Vector, d), Max: make(vector.Vector, d)}
	for i := 0; i < d; i++ {
		bb.Min[i] = lo
		bb.Max[i] = hi
	}
	return bb
}

// Cube returns the hypercube centered on center with the given half-width.
func Cube(center vector.Vector, halfWidth float64) BoundingBox {
	bb := BoundingBox{Min: make(vector.Vector, len(center)), Max: make(vector.Vector, len(center))}
	for i, c := range center {
		bb.Min[i] = c - halfWidth
		bb.Max[i] = c + halfWidth
	}
	return bb
}

// Enclosing returns the smallest hypercube containing every point, grown by
// the relative padding pad so that points on the upper faces still fall
// strictly inside. No points, or all points identical, give a unit cube.
func Enclosing(d int, points []vector.Vector, pad float64) BoundingBox {
	if len(points) == 0 {
		return Cube(Zero(d), 0.5)
	}
	lo := Clone(points[0])
	hi := Clone(points[0])
	for _, p := range points[1:] {
		for i := 0; i < d; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	center := make(vector.Vector, d)
	extent := 0.0
	for i := 0; i < d; i++ {
		center[i] = (lo[i] + hi[i]) / 2
		extent = math.Max(extent, hi[i]-lo[i])
	}
	if extent == 0 {
		return Cube(center, 0.5)
	}
	return Cube(center, extent/2*(1+pad))
}

func (bb BoundingBox) Dimensions() int { return len(bb.Min) }

// CenterAt returns the center coordinate along dimension n.
func (bb BoundingBox) CenterAt(n int) float64 {
	return (bb.Min[n] + bb.Max[n]) / 2
}

func (bb BoundingBox) Center() vector.Vector {
	c := make(vector.Vector, len(bb.Min))
	for i := range c {
		c[i] = bb.CenterAt(i)
	}
	return c
}

// Size returns the longest edge of the box.
func (bb BoundingBox) Size() float64 {
	size := 0.0
	for i := range bb.Min {
		size = math.Max(size, bb.Max[i]-bb.Min[i])
	}
	return size
}

func (bb BoundingBox) Contains(pos vector.Vector) bool {
	for i := range bb.Min {
		if pos[i] < bb.Min[i] || pos[i] > bb.Max[i] {
			return false
		}
	}
	return true
}

// Quadrant returns the index in [0, 2^D) of the sub-region pos falls into:
// bit i is set iff pos[i] >= center[i].
func (bb BoundingBox) Quadrant(pos vector.Vector) int {
	idx := 0
	for i := range bb.Min {
		if pos[i] >= bb.CenterAt(i) {
			idx |= 1 << i
		}
	}
	return idx
}

// Child is the inverse of Quadrant: it returns the sub-region for the given
// index, halving every dimension toward Max where the bit is set and toward
// Min otherwise.
func (bb BoundingBox) Child(quadrant int) BoundingBox {
	child := BoundingBox{Min: Clone(bb.Min), Max: Clone(bb.Max)}
	for i := range bb.Min {
		if quadrant&(1<<i) != 0 {
			child.Min[i] = bb.CenterAt(i)
		} else {
			child.Max[i] = bb.CenterAt(i)
		}
	}
	return child
}
