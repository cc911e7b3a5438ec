package viz

import (
	"math"

	"github.com/quartercastle/vector"
	"golang.org/x/exp/constraints"
)

const (
	minZoom = 0.05
	maxZoom = 50
)

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Camera orients a 3D population before it is flattened onto the canvas.
// Yaw turns about the vertical axis, Pitch tilts towards the viewer.
type Camera struct {
	Yaw, Pitch float64
	Zoom       float64
}

func NewCamera() Camera { return Camera{Zoom: 1} }

func (c *Camera) Rotate(dyaw, dpitch float64) {
	c.Yaw = math.Mod(c.Yaw+dyaw, 2*math.Pi)
	c.Pitch = clamp(c.Pitch+dpitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = clamp(c.Zoom*1.25, minZoom, maxZoom) }
func (c *Camera) ZoomOut() { c.Zoom = clamp(c.Zoom/1.25, minZoom, maxZoom) }

// Flatten maps an offset from the view center to screen-plane coordinates.
// 2D offsets pass through unchanged.
func (c Camera) Flatten(r vector.Vector) (x, y float64) {
	if len(r) < 3 {
		return r[0], r[1]
	}
	cy, sy := math.Cos(c.Yaw), math.Sin(c.Yaw)
	x, z := r[0]*cy+r[2]*sy, -r[0]*sy+r[2]*cy
	cp, sp := math.Cos(c.Pitch), math.Sin(c.Pitch)
	y = r[1]*cp - z*sp
	return x, y
}
