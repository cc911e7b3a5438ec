// Package automation runs batches of simulations: scripted scenarios,
// one-parameter sweeps, seed ensembles and grid searches.
package automation

import (
	"context"
	"math"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/experiment"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// setters maps a tunable name to the config field it writes.
var setters = map[string]func(c *config.Config, v float64){
	"theta":           func(c *config.Config, v float64) { c.Simulation.Theta = v },
	"dt":              func(c *config.Config, v float64) { c.Simulation.Dt = v },
	"softening":       func(c *config.Config, v float64) { c.Simulation.Softening = v },
	"g":               func(c *config.Config, v float64) { c.Simulation.G = v },
	"merge_threshold": func(c *config.Config, v float64) { c.Simulation.MergeThreshold = v },
	"merge_damping":   func(c *config.Config, v float64) { c.Simulation.MergeDamping = v },
	"steps":           func(c *config.Config, v float64) { c.Simulation.Steps = int(v) },
	"n":               func(c *config.Config, v float64) { c.Generator.N = int(v) },
	"seed":            func(c *config.Config, v float64) { c.Generator.Seed = uint64(v) },
	"extent":          func(c *config.Config, v float64) { c.Generator.Extent = v },
}

// SetParam writes a named tunable into c.
func SetParam(c *config.Config, name string, v float64) error {
	set, ok := setters[name]
	if !ok {
		return errors.Errorf("unknown parameter: %s (available: %v)", name, Params())
	}
	set(c, v)
	return nil
}

// Params lists the tunable names.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func clone(c *config.Config) *config.Config {
	out := *c
	out.Output.Metrics = append([]string(nil), c.Output.Metrics...)
	return &out
}

func run(ctx context.Context, c *config.Config) (*sim.Result, error) {
	exp := experiment.New(c.ExperimentConfig())
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// Scenario is a scripted sequence of runs read from yaml.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset, or the defaults, and applies Set.
type ScenarioStep struct {
	Name   string             `yaml:"name"`
	Preset string             `yaml:"preset"`
	Set    map[string]float64 `yaml:"set"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, errors.Wrapf(err, "parse scenario %s", path)
	}
	return &scenario, nil
}

// Config builds the configuration of one step.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, errors.Errorf("unknown preset: %s", s.Preset)
		}
	}
	names := make([]string, 0, len(s.Set))
	for name := range s.Set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := SetParam(cfg, name, s.Set[name]); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

type StepResult struct {
	Name   string
	Result *sim.Result
}

// RunScenario executes the steps in order and stops at the first error.
func RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	for i, step := range scenario.Steps {
		log.Info().Msgf("scenario %s: step %d/%d %s", scenario.Name, i+1, len(scenario.Steps), step.Name)
		cfg, err := step.Config()
		if err != nil {
			return results, errors.Wrapf(err, "step %d", i+1)
		}
		res, err := run(ctx, cfg)
		if err != nil {
			return results, errors.Wrapf(err, "step %d", i+1)
		}
		results = append(results, StepResult{Name: step.Name, Result: res})
	}
	return results, nil
}

// ParameterSweep varies one tunable over Count evenly spaced values.
type ParameterSweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Count int
}

type SweepResult struct {
	Value          float64
	Bodies         int
	Merges         int
	EnergyDrift    float64
	StepsPerSecond float64
}

func RunSweep(ctx context.Context, sweep ParameterSweep) ([]SweepResult, error) {
	if sweep.Count < 1 {
		return nil, errors.Errorf("sweep needs at least one value, got %d", sweep.Count)
	}
	step := 0.0
	if sweep.Count > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.Count-1)
	}

	results := make([]SweepResult, 0, sweep.Count)
	for i := 0; i < sweep.Count; i++ {
		value := sweep.Min + float64(i)*step
		cfg := clone(sweep.Base)
		if err := SetParam(cfg, sweep.Param, value); err != nil {
			return nil, err
		}
		res, err := run(ctx, cfg)
		if err != nil {
			return results, errors.Wrapf(err, "%s=%g", sweep.Param, value)
		}
		results = append(results, SweepResult{
			Value:          value,
			Bodies:         len(res.Bodies),
			Merges:         res.Merges,
			EnergyDrift:    res.EnergyDrift,
			StepsPerSecond: res.StepsPerSecond(),
		})
		log.Debug().Msgf("sweep %d/%d: %s=%g", i+1, sweep.Count, sweep.Param, value)
	}
	return results, nil
}

// MonteCarloConfig repeats Base with Trials consecutive generator seeds.
type MonteCarloConfig struct {
	Base   *config.Config
	Trials int
	// Radius bounds a stable trial: every final body within Radius of the
	// center of mass.
	Radius float64
	// Parallel caps the trials running at once; <= 0 uses every CPU.
	Parallel int
}

type MonteCarloResult struct {
	Trial       int
	Seed        uint64
	Bodies      int
	Merges      int
	EnergyDrift float64
	Stable      bool
}

// RunMonteCarlo runs the trials concurrently, one worker each. Results are
// ordered by trial.
func RunMonteCarlo(ctx context.Context, mc MonteCarloConfig) ([]MonteCarloResult, error) {
	parallel := mc.Parallel
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}
	results := make([]MonteCarloResult, mc.Trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	var (
		mu   sync.Mutex
		done int
	)
	for trial := 0; trial < mc.Trials; trial++ {
		trial := trial
		g.Go(func() error {
			cfg := clone(mc.Base)
			cfg.Generator.Seed = mc.Base.Generator.Seed + uint64(trial)
			cfg.Simulation.Workers = 1
			cfg.Simulation.LogEvery = 0
			res, err := run(ctx, cfg)
			if err != nil {
				return errors.Wrapf(err, "trial %d", trial)
			}
			results[trial] = MonteCarloResult{
				Trial:       trial,
				Seed:        cfg.Generator.Seed,
				Bodies:      len(res.Bodies),
				Merges:      res.Merges,
				EnergyDrift: res.EnergyDrift,
				Stable:      bounded(res, mc.Radius),
			}

			mu.Lock()
			done++
			if done%10 == 0 {
				log.Debug().Msgf("monte carlo: %d/%d trials complete", done, mc.Trials)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func bounded(res *sim.Result, radius float64) bool {
	s := metrics.NewStability(radius)
	s.Observe(0, res.Bodies)
	return s.Value() == 1
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stable, unstable int) {
	for _, r := range results {
		if r.Stable {
			stable++
		} else {
			unstable++
		}
	}
	return
}

// GridSearch tries every combination of Values and keeps the one that
// minimizes Metric, a registry metric name.
type GridSearch struct {
	Params []string
	Values [][]float64
	Metric string
}

// ParseGrid builds a GridSearch from "name=v1,v2,..." axes.
func ParseGrid(axes []string, metric string) (GridSearch, error) {
	g := GridSearch{Metric: metric}
	for _, axis := range axes {
		name, list, ok := strings.Cut(axis, "=")
		if !ok || list == "" {
			return GridSearch{}, errors.Errorf("grid axis %q: want name=v1,v2,...", axis)
		}
		if _, known := setters[name]; !known {
			return GridSearch{}, errors.Errorf("grid axis %q: unknown parameter %s", axis, name)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return GridSearch{}, errors.Wrapf(err, "grid axis %q", axis)
			}
			values = append(values, v)
		}
		g.Params = append(g.Params, name)
		g.Values = append(g.Values, values)
	}
	if len(g.Params) == 0 {
		return GridSearch{}, errors.New("grid has no axes")
	}
	return g, nil
}

func (g GridSearch) Search(ctx context.Context, base *config.Config) (map[string]float64, float64, error) {
	if len(g.Params) != len(g.Values) {
		return nil, 0, errors.Errorf("grid has %d parameters but %d value lists", len(g.Params), len(g.Values))
	}
	best := math.Inf(1)
	var bestParams map[string]float64
	err := g.search(ctx, base, 0, map[string]float64{}, func(params map[string]float64, v float64) {
		if v < best {
			best = v
			bestParams = params
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return bestParams, best, nil
}

func (g GridSearch) search(ctx context.Context, base *config.Config, depth int, current map[string]float64, visit func(map[string]float64, float64)) error {
	if depth == len(g.Params) {
		cfg := clone(base)
		cfg.Output.Metrics = []string{g.Metric}
		for name, v := range current {
			if err := SetParam(cfg, name, v); err != nil {
				return err
			}
		}
		res, err := run(ctx, cfg)
		if err != nil {
			return err
		}
		visit(current, res.Metrics[g.Metric])
		return nil
	}

	for _, v := range g.Values[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, cv := range current {
			next[k] = cv
		}
		next[g.Params[depth]] = v
		if err := g.search(ctx, base, depth+1, next, visit); err != nil {
			return err
		}
	}
	return nil
}
