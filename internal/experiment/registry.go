package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/gravsim/internal/body"
	"github.com/san-kum/gravsim/internal/generator"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
)

type Registry struct {
	generators map[string]generator.Func
	metrics    map[string]func(sim.Config) sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		generators: make(map[string]generator.Func),
		metrics:    make(map[string]func(sim.Config) sim.Metric),
	}

	for name, fn := range generator.Generators {
		r.generators[name] = fn
	}

	r.metrics["energy"] = func(c sim.Config) sim.Metric { return metrics.NewEnergy(c.Law()) }
	r.metrics["energy_drift"] = func(c sim.Config) sim.Metric { return metrics.NewEnergyDrift(c.Law()) }
	r.metrics["momentum"] = func(sim.Config) sim.Metric { return metrics.NewMomentum() }
	r.metrics["bodies"] = func(sim.Config) sim.Metric { return metrics.NewBodyCount() }
	r.metrics["total_mass"] = func(sim.Config) sim.Metric { return metrics.NewTotalMass() }
	r.metrics["stability"] = func(sim.Config) sim.Metric { return metrics.NewStability(1e12) }

	return r
}

// RegisterGenerator adds or replaces a named generator.
func (r *Registry) RegisterGenerator(name string, fn generator.Func) {
	r.generators[name] = fn
}

func (r *Registry) Generate(p generator.Params) ([]body.Body, error) {
	fn, ok := r.generators[p.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s", p.Kind)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return fn(generator.NewSource(p.Seed), p), nil
}

func (r *Registry) GetMetric(name string, cfg sim.Config) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListGenerators() []string {
	return sortedKeys(r.generators)
}

func (r *Registry) ListMetrics() []string {
	return sortedKeys(r.metrics)
}

// DefaultMetrics are cheap enough to observe on every step of a large run.
func (r *Registry) DefaultMetrics(cfg sim.Config) []sim.Metric {
	return []sim.Metric{
		metrics.NewBodyCount(),
		metrics.NewTotalMass(),
		metrics.NewMomentum(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
