// Package tree implements the two spatial trees used to approximate
// far-field gravity: the Barnes-Hut mass tree (one aggregate point per cell,
// built incrementally) and the bucket tree (capacity-limited leaves with a
// bottom-up multipole pass).
//
// Trees are rebuilt from scratch every step and are read-only afterwards, so
// any number of goroutines may evaluate forces against one concurrently.
package tree

import (
	"math"

	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"github.com/san-kum/gravsim/internal/gravity"
)

const (
	// MaxDimensions is the highest supported dimensionality.
	MaxDimensions = 3
	// MaxChildren is the child array length, 2^MaxDimensions. A tree of
	// dimension D only uses the first 2^D slots.
	MaxChildren = 1 << MaxDimensions

	// DefaultCollisionEpsilon is the separation below which two inserted
	// points are aggregated instead of split apart.
	DefaultCollisionEpsilon = 1e-4

	// maxDepth bounds splitting for points that stay in a shared octant,
	// e.g. when both lie outside the root box.
	maxDepth = 64

	noID = math.MinInt
)

// SpatialTree is a Barnes-Hut mass tree node. A node without children holds
// zero or one point, or several points aggregated after a collision; an
// internal node holds the mass-weighted aggregate of every point inserted
// beneath it. Each node exclusively owns its children.
type SpatialTree struct {
	COM  vector.Vector
	Mass float64
	Box  geom.BoundingBox

	children [MaxChildren]*SpatialTree
	// points held by a leaf; more than one only after a collision
	members []member
	epsilon float64
}

type member struct {
	id   int
	pos  vector.Vector
	mass float64
}

// NewSpatialTree returns an empty tree. Points closer than epsilon are
// aggregated on insertion; epsilon <= 0 selects DefaultCollisionEpsilon.
func NewSpatialTree(epsilon float64) *SpatialTree {
	if epsilon <= 0 {
		epsilon = DefaultCollisionEpsilon
	}
	return &SpatialTree{epsilon: epsilon}
}

func (t *SpatialTree) newChild(idx int, pos vector.Vector, mass float64, bb geom.BoundingBox, members []member) *SpatialTree {
	child := &SpatialTree{COM: geom.Clone(pos), Mass: mass, Box: bb, members: members, epsilon: t.epsilon}
	t.children[idx] = child
	return child
}

// IsLeaf reports whether the node has no children.
func (t *SpatialTree) IsLeaf() bool {
	for _, c := range t.children {
		if c != nil {
			return false
		}
	}
	return true
}

// Child returns the child in octant idx, or nil.
func (t *SpatialTree) Child(idx int) *SpatialTree {
	return t.children[idx]
}

// absorb folds a point into this node's center of mass.
func (t *SpatialTree) absorb(pos vector.Vector, mass float64) {
	total := t.Mass + mass
	for i := range t.COM {
		t.COM[i] = (t.Mass*t.COM[i] + mass*pos[i]) / total
	}
	t.Mass = total
}

// Insert adds a point of the given mass; bb is the region of this node.
// Non-positive masses are ignored.
func (t *SpatialTree) Insert(pos vector.Vector, mass float64, bb geom.BoundingBox) {
	t.insert(noID, pos, mass, bb)
}

// InsertBody inserts b and remembers its id so that ComputeForce can skip
// the body's interaction with itself.
func (t *SpatialTree) InsertBody(b *body.Body, bb geom.BoundingBox) {
	t.insert(b.ID, b.Position, b.Mass, bb)
}

func (t *SpatialTree) insert(id int, pos vector.Vector, mass float64, bb geom.BoundingBox) {
	if mass <= 0 {
		return
	}
	p := member{id: id, pos: geom.Clone(pos), mass: mass}

	if t.Mass <= 0 && t.IsLeaf() {
		t.COM = geom.Clone(pos)
		t.Mass = mass
		t.Box = bb
		t.members = []member{p}
		return
	}

	// Walk down while the target octant is occupied, adding the point to
	// every aggregate on the way.
	node := t
	box := bb
	quad := box.Quadrant(pos)
	depth := 0
	for node.children[quad] != nil {
		node.absorb(pos, mass)
		box = box.Child(quad)
		node = node.children[quad]
		quad = box.Quadrant(pos)
		depth++
	}

	if !node.IsLeaf() {
		node.absorb(pos, mass)
		node.newChild(quad, pos, mass, box.Child(quad), []member{p})
		return
	}

	// The landing node holds a single point; split until the two land in
	// different octants.
	if geom.Distance(node.COM, pos) < t.epsilon {
		node.absorb(pos, mass)
		node.members = append(node.members, p)
		return
	}

	oldPos, oldMass, old := node.COM, node.Mass, node.members
	node.COM = geom.Clone(oldPos)
	node.absorb(pos, mass)
	node.members = nil

	oldQuad := box.Quadrant(oldPos)
	for quad == oldQuad {
		if depth >= maxDepth {
			// Unseparable at floating point resolution; keep the aggregate.
			node.members = append(old, p)
			return
		}
		box = box.Child(quad)
		node = node.newChild(quad, node.COM, node.Mass, box, nil)
		quad = box.Quadrant(pos)
		oldQuad = box.Quadrant(oldPos)
		depth++
	}
	node.newChild(oldQuad, oldPos, oldMass, box.Child(oldQuad), old)
	node.newChild(quad, pos, mass, box.Child(quad), []member{p})
}

// ComputeForce returns the approximate net force on b. Nodes whose box size
// over distance to b falls below theta are treated as a single point mass.
func (t *SpatialTree) ComputeForce(b *body.Body, theta float64, law gravity.Law) vector.Vector {
	f, _ := t.ComputeForceCounted(b, theta, law)
	return f
}

// ComputeForceCounted is ComputeForce that also reports the number of nodes
// visited.
func (t *SpatialTree) ComputeForceCounted(b *body.Body, theta float64, law gravity.Law) (vector.Vector, int) {
	total := geom.Zero(b.Dimensions())
	visits := t.accumulate(total, b, theta, law)
	return total, visits
}

func (t *SpatialTree) accumulate(total vector.Vector, b *body.Body, theta float64, law gravity.Law) int {
	if t.Mass <= 0 {
		return 0
	}
	if t.IsLeaf() {
		// Members are summed one by one so a body sharing a collision leaf
		// still skips itself.
		for _, m := range t.members {
			if m.id != noID && m.id == b.ID {
				continue
			}
			vector.In(total).Add(law.Force(b.Position, b.Mass, m.pos, m.mass))
		}
		return 1
	}

	d := geom.Distance(t.COM, b.Position)
	if t.Box.Size()/d < theta {
		vector.In(total).Add(law.Force(b.Position, b.Mass, t.COM, t.Mass))
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

// Walk calls fn for every node in depth-first order, parents first.
func (t *SpatialTree) Walk(fn func(node *SpatialTree, depth int)) {
	t.walk(fn, 0)
}

func (t *SpatialTree) walk(fn func(*SpatialTree, int), depth int) {
	fn(t, depth)
	for _, c := range t.children {
		if c != nil {
			c.walk(fn, depth+1)
		}
	}
}

// Count returns the number of nodes in the tree.
func (t *SpatialTree) Count() int {
	n := 0
	t.Walk(func(*SpatialTree, int) { n++ })
	return n
}

// Depth returns the length of the longest root-to-leaf path.
func (t *SpatialTree) Depth() int {
	deepest := 0
	t.Walk(func(_ *SpatialTree, d int) {
		if d > deepest {
			deepest = d
		}
	})
	return deepest
}
