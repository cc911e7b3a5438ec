package tree

import (
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"github.com/san-kum/gravsim/internal/gravity"
)

// DefaultPadding is the relative growth applied to the enclosing root box.
const DefaultPadding = 1e-6

// BarnesHut evaluates forces against a SpatialTree rebuilt over the
// population on every Build.
type BarnesHut struct {
	Law              gravity.Law
	Theta            float64
	CollisionEpsilon float64
	// Padding grows the root box so bodies on its upper faces fall inside.
	Padding float64

	root *SpatialTree
}

func NewBarnesHut(law gravity.Law, theta float64) *BarnesHut {
	return &BarnesHut{Law: law, Theta: theta, CollisionEpsilon: DefaultCollisionEpsilon, Padding: DefaultPadding}
}

func (e *BarnesHut) Name() string { return "barneshut" }

func (e *BarnesHut) Build(bodies []body.Body) {
	e.root = BuildSpatial(bodies, e.CollisionEpsilon, e.Padding)
}

// Root returns the tree from the last Build.
func (e *BarnesHut) Root() *SpatialTree { return e.root }

func (e *BarnesHut) ForceOn(b *body.Body) vector.Vector {
	f, _ := e.ForceOnCounted(b)
	return f
}

func (e *BarnesHut) ForceOnCounted(b *body.Body) (vector.Vector, int) {
	if e.root == nil {
		return geom.Zero(b.Dimensions()), 0
	}
	return e.root.ComputeForceCounted(b, e.Theta, e.Law)
}

// BuildSpatial inserts every body into a fresh SpatialTree whose root box
// encloses the population.
func BuildSpatial(bodies []body.Body, epsilon, padding float64) *SpatialTree {
	root := NewSpatialTree(epsilon)
	if len(bodies) == 0 {
		return root
	}
	bb := geom.Enclosing(bodies[0].Dimensions(), body.Positions(bodies), padding)
	for i := range bodies {
		root.InsertBody(&bodies[i], bb)
	}
	return root
}

// Multipole evaluates forces against a BucketTree. Build inserts every body
// and then runs the aggregation pass.
type Multipole struct {
	Law     gravity.Law
	Theta   float64
	Bucket  BucketConfig
	Padding float64

	root *BucketTree
}

func NewMultipole(law gravity.Law, theta float64, cfg BucketConfig) *Multipole {
	return &Multipole{Law: law, Theta: theta, Bucket: cfg, Padding: DefaultPadding}
}

func (e *Multipole) Name() string { return "multipole" }

func (e *Multipole) Build(bodies []body.Body) {
	e.root = BuildBucket(bodies, e.Bucket, e.Padding)
}

func (e *Multipole) Root() *BucketTree { return e.root }

func (e *Multipole) ForceOn(b *body.Body) vector.Vector {
	f, _ := e.ForceOnCounted(b)
	return f
}

func (e *Multipole) ForceOnCounted(b *body.Body) (vector.Vector, int) {
	if e.root == nil {
		return geom.Zero(b.Dimensions()), 0
	}
	return e.root.ComputeForceCounted(b, e.Theta, e.Law)
}

// BuildBucket returns an aggregated BucketTree over bodies.
func BuildBucket(bodies []body.Body, cfg BucketConfig, padding float64) *BucketTree {
	d := 2
	if len(bodies) > 0 {
		d = bodies[0].Dimensions()
	}
	bb := geom.Enclosing(d, body.Positions(bodies), padding)
	root := NewBucketTreeFor(bb, cfg)
	for i := range bodies {
		root.Insert(&bodies[i])
	}
	root.Aggregate()
	return root
}

var (
	_ gravity.Evaluator = (*BarnesHut)(nil)
	_ gravity.Counter   = (*BarnesHut)(nil)
	_ gravity.Evaluator = (*Multipole)(nil)
	_ gravity.Counter   = (*Multipole)(nil)
)
