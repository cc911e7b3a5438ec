package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/generator"
	"github.com/san-kum/gravsim/internal/gravity"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
)

type Config struct {
	Sim       sim.Config
	Generator generator.Params
	// Metrics names registry metrics; empty selects the defaults.
	Metrics []string
	// SeriesEvery records a series sample every n steps; 0 disables it.
	SeriesEvery int
	// SeriesEnergy adds the O(n²) total energy to every series sample.
	SeriesEnergy bool
}

// Experiment wires a generated population to a simulator.
type Experiment struct {
	cfg       Config
	registry  *Registry
	simulator *sim.Simulator
	series    *metrics.Series
	initial   []body.Body
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg, registry: NewRegistry()}
}

func NewWithRegistry(cfg Config, r *Registry) *Experiment {
	return &Experiment{cfg: cfg, registry: r}
}

// Setup generates the initial population and builds the simulator. The
// generator always produces bodies of the simulation's dimension.
func (e *Experiment) Setup() error {
	gen := e.cfg.Generator
	gen.Dimensions = e.cfg.Sim.Dimensions
	bodies, err := e.registry.Generate(gen)
	if err != nil {
		return err
	}
	return e.SetupWith(bodies)
}

// SetupWith builds the simulator around an existing population.
func (e *Experiment) SetupWith(bodies []body.Body) error {
	s, err := sim.NewFromConfig(e.cfg.Sim)
	if err != nil {
		return err
	}

	ms := e.registry.DefaultMetrics(e.cfg.Sim)
	if len(e.cfg.Metrics) > 0 {
		ms = ms[:0]
		for _, name := range e.cfg.Metrics {
			m, err := e.registry.GetMetric(name, e.cfg.Sim)
			if err != nil {
				return err
			}
			ms = append(ms, m)
		}
	}
	for _, m := range ms {
		s.AddMetric(m)
	}

	if e.cfg.SeriesEvery > 0 {
		var law *gravity.Law
		if e.cfg.SeriesEnergy {
			l := e.cfg.Sim.Law()
			law = &l
		}
		e.series = metrics.NewSeries(e.cfg.SeriesEvery, law)
		s.AddObserver(e.series)
	}

	e.simulator = s
	e.initial = bodies
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.initial)
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Bodies returns the initial population.
func (e *Experiment) Bodies() []body.Body {
	return e.initial
}

// Series returns the recorded series, or nil when it is disabled.
func (e *Experiment) Series() *metrics.Series {
	return e.series
}
