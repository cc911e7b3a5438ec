package geom

import (
	"math"

	"github.com/quartercastle/vector"
)

// Zero returns the origin of a d-dimensional space.
func Zero(d int) vector.Vector {
	return make(vector.Vector, d)
}

func Clone(v vector.Vector) vector.Vector {
	c := make(vector.Vector, len(v))
	copy(c, v)
	return c
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b vector.Vector) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Direction returns the unit vector pointing from `from` to `to`. When the
// separation is shorter than eps the zero vector is returned, so callers
// never divide by a vanishing magnitude.
func Direction(from, to vector.Vector, eps float64) vector.Vector {
	delta := to.Sub(from)
	mag := delta.Magnitude()
	if mag < eps || mag == 0 {
		return Zero(len(from))
	}
	vector.In(delta).Scale(1 / mag)
	return delta
}

// HasNaN reports whether any component of v is NaN.
func HasNaN(v vector.Vector) bool {
	for _, c := range v {
		if math.IsNaN(c) {
			return true
		}
	}
	return false
}

// WeightedAverage returns (a*wa + b*wb) / (wa + wb).
func WeightedAverage(a vector.Vector, wa float64, b vector.Vector, wb float64) vector.Vector {
	total := wa + wb
	out := make(vector.Vector, len(a))
	for i := range a {
		out[i] = (a[i]*wa + b[i]*wb) / total
	}
	return out
}
