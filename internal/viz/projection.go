package viz

import (
	"math"

	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
	"github.com/san-kum/gravsim/internal/metrics"
)

const (
	fitMargin  = 1.1
	maxDotSize = 3
)

// View is the region of space shown on the canvas: a square of half-width
// Extent around Center, before zoom.
type View struct {
	Center vector.Vector
	Extent float64
}

// FitView frames every non-inert body around the center of mass.
func FitView(bodies []body.Body, cam Camera) View {
	if len(bodies) == 0 {
		return View{Center: vector.Vector{0, 0}, Extent: 1}
	}
	center, ok := metrics.CenterOfMass(bodies)
	if !ok {
		center = geom.Zero(bodies[0].Dimensions())
	}
	extent := 0.0
	for i := range bodies {
		if bodies[i].Inert() {
			continue
		}
		x, y := cam.Flatten(bodies[i].Position.Sub(center))
		extent = math.Max(extent, math.Max(math.Abs(x), math.Abs(y)))
	}
	if extent == 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		return View{Center: center, Extent: 1}
	}
	return View{Center: center, Extent: extent * fitMargin}
}

// Project returns the dot covering pos.
func (v View) Project(c *Canvas, cam Camera, pos vector.Vector) (int, int) {
	w, h := c.Dots()
	x, y := cam.Flatten(pos.Sub(v.Center))
	s := v.scale(c, cam)
	return int(math.Floor(float64(w)/2 + x*s)), int(math.Floor(float64(h)/2 - y*s))
}

// scale is dots per unit length.
func (v View) scale(c *Canvas, cam Camera) float64 {
	w, h := c.Dots()
	zoom := cam.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return float64(min(w, h)) / 2 / v.Extent * zoom
}

// Render clears c and draws every non-inert body as a disc sized by its
// radius. It only reads bodies. The number of bodies inside the canvas is
// returned.
func Render(c *Canvas, bodies []body.Body, v View, cam Camera) int {
	c.Clear()
	if len(v.Center) == 0 {
		return 0
	}
	w, h := c.Dots()
	s := v.scale(c, cam)
	visible := 0
	for i := range bodies {
		b := &bodies[i]
		if b.Inert() || len(b.Position) != len(v.Center) {
			continue
		}
		x, y := v.Project(c, cam, b.Position)
		if x < 0 || y < 0 || x >= w || y >= h {
			continue
		}
		visible++
		r := clamp(int(b.Radius*s), 0, maxDotSize)
		if r == 0 {
			c.Set(x, y)
		} else {
			c.Disc(x, y, r)
		}
	}
	return visible
}
