package tree

import (
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"github.com/san-kum/gravsim/internal/gravity"
)

const (
	DefaultCapacity = 4
	DefaultMinSize  = 1e-3
)

// BucketConfig controls when a bucket node subdivides: a node splits once it
// holds more than Capacity bodies and its half-width is still above MinSize.
type BucketConfig struct {
	Capacity int
	MinSize  float64
}

func DefaultBucketConfig() BucketConfig {
	return BucketConfig{Capacity: DefaultCapacity, MinSize: DefaultMinSize}
}

// BucketTree is a hypercube cell holding up to Capacity bodies before it
// subdivides. Mass and Multipole describe the whole subtree and are only
// valid after Aggregate.
type BucketTree struct {
	Center vector.Vector
	// Size is the half-width of the cell.
	Size float64

	Mass      float64
	Multipole vector.Vector

	// Bodies is only populated on leaves.
	Bodies   []body.Body
	children [MaxChildren]*BucketTree
	cfg      BucketConfig
}

func NewBucketTree(center vector.Vector, halfWidth float64, cfg BucketConfig) *BucketTree {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &BucketTree{
		Center:    geom.Clone(center),
		Size:      halfWidth,
		Multipole: geom.Zero(len(center)),
		cfg:       cfg,
	}
}

// NewBucketTreeFor returns an empty tree covering bb.
func NewBucketTreeFor(bb geom.BoundingBox, cfg BucketConfig) *BucketTree {
	return NewBucketTree(bb.Center(), bb.Size()/2, cfg)
}

func (t *BucketTree) IsLeaf() bool { return t.children[0] == nil }

func (t *BucketTree) Child(idx int) *BucketTree { return t.children[idx] }

// Len returns the number of bodies stored directly in this node.
func (t *BucketTree) Len() int { return len(t.Bodies) }

func (t *BucketTree) quadrant(pos vector.Vector) int {
	q := 0
	for i := range t.Center {
		if pos[i] >= t.Center[i] {
			q |= 1 << i
		}
	}
	return q
}

// Insert stores a copy of b in the leaf covering its position. The copy
// shares b's vectors, so b must not move until the tree is rebuilt.
// Inert bodies are skipped.
func (t *BucketTree) Insert(b *body.Body) {
	if b.Inert() {
		return
	}
	t.insert(*b, 0)
}

func (t *BucketTree) insert(b body.Body, depth int) {
	if !t.IsLeaf() {
		t.children[t.quadrant(b.Position)].insert(b, depth+1)
		return
	}
	t.Bodies = append(t.Bodies, b)
	if len(t.Bodies) > t.cfg.Capacity && t.Size > t.cfg.MinSize && depth < maxDepth {
		t.split(depth)
	}
}

func (t *BucketTree) split(depth int) {
	d := len(t.Center)
	half := t.Size / 2
	for q := 0; q < 1<<d; q++ {
		center := geom.Clone(t.Center)
		for i := range center {
			if q&(1<<i) != 0 {
				center[i] += half
			} else {
				center[i] -= half
			}
		}
		t.children[q] = NewBucketTree(center, half, t.cfg)
	}

	bodies := t.Bodies
	t.Bodies = nil
	for _, b := range bodies {
		t.children[t.quadrant(b.Position)].insert(b, depth+1)
	}
}

// Aggregate computes Mass and Multipole bottom-up for every node.
func (t *BucketTree) Aggregate() {
	mass := 0.0
	weighted := geom.Zero(len(t.Center))

	if t.IsLeaf() {
		for i := range t.Bodies {
			mass += t.Bodies[i].Mass
			vector.In(weighted).Add(t.Bodies[i].Position.Scale(t.Bodies[i].Mass))
		}
	} else {
		for _, c := range t.children {
			if c == nil {
				continue
			}
			c.Aggregate()
			mass += c.Mass
			vector.In(weighted).Add(c.Multipole.Scale(c.Mass))
		}
	}

	t.Mass = mass
	if mass > 0 {
		vector.In(weighted).Scale(1 / mass)
	}
	t.Multipole = weighted
}

// ComputeForce returns the approximate net force on b. Leaves sum their
// bodies directly; an internal node is used as a point mass at its
// multipole when its edge length over the distance to b is below theta.
func (t *BucketTree) ComputeForce(b *body.Body, theta float64, law gravity.Law) vector.Vector {
	f, _ := t.ComputeForceCounted(b, theta, law)
	return f
}

func (t *BucketTree) ComputeForceCounted(b *body.Body, theta float64, law gravity.Law) (vector.Vector, int) {
	total := geom.Zero(b.Dimensions())
	visits := t.accumulate(total, b, theta, law)
	return total, visits
}

func (t *BucketTree) accumulate(total vector.Vector, b *body.Body, theta float64, law gravity.Law) int {
	if t.Mass <= 0 {
		return 0
	}
	if t.IsLeaf() {
		for i := range t.Bodies {
			other := &t.Bodies[i]
			if other.ID == b.ID {
				continue
			}
			vector.In(total).Add(law.Force(b.Position, b.Mass, other.Position, other.Mass))
		}
		return 1
	}

	d := geom.Distance(t.Multipole, b.Position)
	if 2*t.Size/d < theta {
		vector.In(total).Add(law.Force(b.Position, b.Mass, t.Multipole, t.Mass))
		return 1
	}

	visits := 1
	for _, c := range t.children {
		if c != nil {
			visits += c.accumulate(total, b, theta, law)
		}
	}
	return visits
}

// Clear drops every body but keeps the subdivision.
func (t *BucketTree) Clear() {
	t.Bodies = nil
	t.Mass = 0
	t.Multipole = geom.Zero(len(t.Center))
	for _, c := range t.children {
		if c != nil {
			c.Clear()
		}
	}
}

// Walk calls fn for every node in depth-first order, parents first.
func (t *BucketTree) Walk(fn func(node *BucketTree, depth int)) {
	t.walk(fn, 0)
}

func (t *BucketTree) walk(fn func(*BucketTree, int), depth int) {
	fn(t, depth)
	for _, c := range t.children {
		if c != nil {
			c.walk(fn, depth+1)
		}
	}
}
