package generator

import (
	"math"

	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/geom"
)

// Params describes a population. Not every generator uses every field.
type Params struct {
	Kind       string  `yaml:"kind" gcfg:"kind"`
	N          int     `yaml:"n" gcfg:"n"`
	Dimensions int     `yaml:"dimensions" gcfg:"dimensions"`
	Seed       uint64  `yaml:"seed" gcfg:"seed"`
	Extent     float64 `yaml:"extent" gcfg:"extent"`
	MinMass    float64 `yaml:"min_mass" gcfg:"min-mass"`
	MaxMass    float64 `yaml:"max_mass" gcfg:"max-mass"`
	// CentralMass is the mass of the disc center or of each attractor.
	CentralMass float64 `yaml:"central_mass" gcfg:"central-mass"`
	Attractors  int     `yaml:"attractors" gcfg:"attractors"`
	// Radius is the rendering radius of a body of MaxMass.
	Radius float64 `yaml:"radius" gcfg:"radius"`
	// G sets orbital velocities; it should match the simulation's.
	G float64 `yaml:"g" gcfg:"g"`
}

func DefaultParams() Params {
	return Params{
		Kind:        "uniform",
		N:           1000,
		Dimensions:  2,
		Seed:        1,
		Extent:      1e4,
		MinMass:     1e10,
		MaxMass:     1e12,
		CentralMass: 1e18,
		Attractors:  3,
		Radius:      10,
		G:           6.674e-11,
	}
}

func (p Params) Validate() error {
	if p.Dimensions != 2 && p.Dimensions != 3 {
		return errors.Errorf("generator: dimensions must be 2 or 3, got %d", p.Dimensions)
	}
	if p.N < 0 {
		return errors.Errorf("generator: negative body count %d", p.N)
	}
	if p.MinMass <= 0 || p.MaxMass < p.MinMass {
		return errors.Errorf("generator: invalid mass range [%g, %g]", p.MinMass, p.MaxMass)
	}
	if p.Extent <= 0 {
		return errors.Errorf("generator: extent must be positive, got %g", p.Extent)
	}
	return nil
}

// Func builds a population from a source and parameters.
type Func func(src *Source, p Params) []body.Body

func (p Params) radiusFor(mass float64) float64 {
	return p.Radius * math.Cbrt(mass/p.MaxMass)
}

func (p Params) randomMass(src *Source) float64 {
	return src.Between(p.MinMass, p.MaxMass)
}

// Uniform scatters N bodies at rest over the cube [-Extent, Extent]^D.
func Uniform(src *Source, p Params) []body.Body {
	bodies := make([]body.Body, p.N)
	for i := range bodies {
		pos := geom.Zero(p.Dimensions)
		for k := range pos {
			pos[k] = src.Between(-p.Extent, p.Extent)
		}
		m := p.randomMass(src)
		bodies[i] = body.New(i, m, p.radiusFor(m), pos, geom.Zero(p.Dimensions))
	}
	return bodies
}

// orbit places a body of mass m on a circular orbit of radius r around a
// center of mass M at the given angle. In 3D the orbit plane is tilted by a
// small random angle.
func orbit(src *Source, p Params, center, centerVel vector.Vector, M, r, angle float64) (pos, vel vector.Vector) {
	pos = geom.Clone(center)
	vel = geom.Clone(centerVel)
	speed := math.Sqrt(p.G * M / r)
	sin, cos := math.Sincos(angle)
	pos[0] += r * cos
	pos[1] += r * sin
	vel[0] -= speed * sin
	vel[1] += speed * cos
	if p.Dimensions == 3 {
		pos[2] += 0.05 * r * src.Normal()
	}
	return pos, vel
}

// Orbital builds a disc: body 0 is a central mass at the origin and the
// others circle it with v = sqrt(G*M/r).
func Orbital(src *Source, p Params) []body.Body {
	if p.N == 0 {
		return nil
	}
	d := p.Dimensions
	bodies := make([]body.Body, 0, p.N)
	bodies = append(bodies, body.New(0, p.CentralMass, 2*p.Radius, geom.Zero(d), geom.Zero(d)))
	for i := 1; i < p.N; i++ {
		r := src.Between(0.1*p.Extent, p.Extent)
		pos, vel := orbit(src, p, geom.Zero(d), geom.Zero(d), p.CentralMass, r, 2*math.Pi*src.Float64())
		m := p.randomMass(src)
		bodies = append(bodies, body.New(i, m, p.radiusFor(m), pos, vel))
	}
	return bodies
}

// Attractors seeds Attractors heavy bodies at rest and gives each a swarm
// of bodies on circular orbits around it. Swarm membership is random.
func Attractors(src *Source, p Params) []body.Body {
	k := min(max(p.Attractors, 1), p.N)
	d := p.Dimensions
	bodies := make([]body.Body, 0, p.N)
	for i := 0; i < k; i++ {
		pos := geom.Zero(d)
		for j := range pos {
			pos[j] = src.Between(-p.Extent/2, p.Extent/2)
		}
		bodies = append(bodies, body.New(i, p.CentralMass, 2*p.Radius, pos, geom.Zero(d)))
	}
	for i := k; i < p.N; i++ {
		seed := &bodies[src.Range(0, k)]
		r := src.Between(0.02*p.Extent, 0.2*p.Extent)
		pos, vel := orbit(src, p, seed.Position, seed.Velocity, seed.Mass, r, 2*math.Pi*src.Float64())
		m := p.randomMass(src)
		bodies = append(bodies, body.New(i, m, p.radiusFor(m), pos, vel))
	}
	return bodies
}

// Sun, Earth and Moon in SI units.
const (
	SunMass    = 1.989e30
	EarthMass  = 5.972e24
	MoonMass   = 7.348e22
	EarthOrbit = 1.496e11
	EarthSpeed = 29780.0
	MoonOrbit  = 384400000.0
	MoonSpeed  = 1022.0
)

// Solar returns the Sun, Earth and Moon with the Earth on the x axis. Only
// Dimensions is read from p.
func Solar(_ *Source, p Params) []body.Body {
	d := p.Dimensions
	at := func(x, vy float64) (vector.Vector, vector.Vector) {
		pos, vel := geom.Zero(d), geom.Zero(d)
		pos[0], vel[1] = x, vy
		return pos, vel
	}
	sunPos, sunVel := at(0, 0)
	earthPos, earthVel := at(EarthOrbit, EarthSpeed)
	moonPos, moonVel := at(EarthOrbit+MoonOrbit, EarthSpeed+MoonSpeed)
	return []body.Body{
		body.New(0, SunMass, 6.957e8, sunPos, sunVel),
		body.New(1, EarthMass, 6.371e6, earthPos, earthVel),
		body.New(2, MoonMass, 1.737e6, moonPos, moonVel),
	}
}

// Generators maps Params.Kind to its generator.
var Generators = map[string]Func{
	"uniform":    Uniform,
	"orbital":    Orbital,
	"attractors": Attractors,
	"solar":      Solar,
}

// Generate validates p and builds the population of kind p.Kind.
func Generate(p Params) ([]body.Body, error) {
	fn, ok := Generators[p.Kind]
	if !ok {
		return nil, errors.Errorf("unknown generator: %s", p.Kind)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return fn(NewSource(p.Seed), p), nil
}
