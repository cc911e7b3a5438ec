// Package merge consolidates bodies that have drifted closer together than a
// threshold. Pairing is a single greedy pass: a body takes part in at most
// one merge per pass, so a chain of close bodies collapses over several
// steps rather than all at once.
package merge

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"golang.org/x/sync/errgroup"
)

const DefaultDamping = 0.6

// Config controls a merge pass. Threshold <= 0 disables merging.
type Config struct {
	Threshold float64
	// Damping scales the summed mass of a merge product.
	Damping float64
	Workers int
}

func DefaultConfig() Config {
	return Config{Damping: DefaultDamping, Workers: runtime.GOMAXPROCS(0)}
}

func (c Config) Enabled() bool { return c.Threshold > 0 }

// IDSource hands out ids for merge products: -1, -2, -3 and so on. An id is
// never handed out twice, so retired ids cannot reappear.
type IDSource struct {
	mu   sync.Mutex
	last int
}

func NewIDSource() *IDSource { return &IDSource{} }

// NewIDSourceFor returns a source whose ids do not collide with any negative
// id already present in bodies.
func NewIDSourceFor(bodies []body.Body) *IDSource {
	s := &IDSource{}
	for i := range bodies {
		if bodies[i].ID < s.last {
			s.last = bodies[i].ID
		}
	}
	return s
}

func (s *IDSource) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last--
	return s.last
}

// Pair holds the indexes of two bodies closer than the threshold, I < J.
type Pair struct{ I, J int }

// Pairs returns every index pair i<j closer than threshold, sorted by i then
// j. Inert bodies never pair.
func Pairs(bodies []body.Body, threshold float64, workers int) []Pair {
	n := len(bodies)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (n + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	var (
		mu    sync.Mutex
		pairs []Pair
		g     errgroup.Group
	)
	for start := 0; start < n; start += chunk {
		start, end := start, min(start+chunk, n)
		g.Go(func() error {
			var local []Pair
			for i := start; i < end; i++ {
				if bodies[i].Inert() {
					continue
				}
				for j := i + 1; j < n; j++ {
					if bodies[j].Inert() {
						continue
					}
					if geom.Distance(bodies[i].Position, bodies[j].Position) < threshold {
						local = append(local, Pair{i, j})
					}
				}
			}
			if len(local) > 0 {
				mu.Lock()
				pairs = append(pairs, local...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].I != pairs[b].I {
			return pairs[a].I < pairs[b].I
		}
		return pairs[a].J < pairs[b].J
	})
	return pairs
}

// Combine returns the merge product of a and b under the given damping.
// Position and velocity are averaged with the pre-merge masses as weights.
func Combine(a, b *body.Body, damping float64, id int) body.Body {
	pos := geom.WeightedAverage(a.Position, a.Mass, b.Position, b.Mass)
	vel := geom.WeightedAverage(a.Velocity, a.Mass, b.Velocity, b.Mass)
	radius := math.Cbrt(a.Radius*a.Radius*a.Radius + b.Radius*b.Radius*b.Radius)
	return body.New(id, (a.Mass+b.Mass)*damping, radius, pos, vel)
}

// Pass merges close pairs and returns the new population together with the
// number of merges. Survivors keep their relative order and merge products
// are appended. The input slice is not modified.
func Pass(bodies []body.Body, cfg Config, ids *IDSource) ([]body.Body, int) {
	if !cfg.Enabled() || len(bodies) < 2 {
		return bodies, 0
	}
	pairs := Pairs(bodies, cfg.Threshold, cfg.Workers)
	if len(pairs) == 0 {
		return bodies, 0
	}

	consumed := make(map[int]struct{})
	var products []body.Body
	for _, p := range pairs {
		a, b := &bodies[p.I], &bodies[p.J]
		if _, ok := consumed[a.ID]; ok {
			continue
		}
		if _, ok := consumed[b.ID]; ok {
			continue
		}
		consumed[a.ID] = struct{}{}
		consumed[b.ID] = struct{}{}
		products = append(products, Combine(a, b, cfg.Damping, ids.Next()))
	}

	out := make([]body.Body, 0, len(bodies)-len(products))
	for i := range bodies {
		if _, ok := consumed[bodies[i].ID]; !ok {
			out = append(out, bodies[i])
		}
	}
	return append(out, products...), len(products)
}
