package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"github.com/san-kum/gravsim/internal/experiment"
	"github.com/san-kum/gravsim/internal/generator"
	"github.com/san-kum/gravsim/internal/sim"
	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk description of a run. Each field maps to a yaml
// mapping or to a gcfg section of the same name.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation" gcfg:"simulation"`
	Generator  generator.Params `yaml:"generator" gcfg:"generator"`
	Output     OutputConfig     `yaml:"output" gcfg:"output"`
}

type SimulationConfig struct {
	Dimensions       int     `yaml:"dimensions" gcfg:"dimensions"`
	G                float64 `yaml:"g" gcfg:"g"`
	Softening        float64 `yaml:"softening" gcfg:"softening"`
	Dt               float64 `yaml:"dt" gcfg:"dt"`
	Method           string  `yaml:"method" gcfg:"method"`
	Theta            float64 `yaml:"theta" gcfg:"theta"`
	CollisionEpsilon float64 `yaml:"collision_epsilon" gcfg:"collision-epsilon"`
	Capacity         int     `yaml:"capacity" gcfg:"capacity"`
	MinCellSize      float64 `yaml:"min_cell_size" gcfg:"min-cell-size"`
	MergeThreshold   float64 `yaml:"merge_threshold" gcfg:"merge-threshold"`
	MergeDamping     float64 `yaml:"merge_damping" gcfg:"merge-damping"`
	Steps            int     `yaml:"steps" gcfg:"steps"`
	// Workers <= 0 uses every available CPU.
	Workers       int  `yaml:"workers" gcfg:"workers"`
	ValidateState bool `yaml:"validate_state" gcfg:"validate-state"`
	LogEvery      int  `yaml:"log_every" gcfg:"log-every"`
}

type OutputConfig struct {
	// Name labels the stored run; empty derives one from the start time.
	Name         string   `yaml:"name" gcfg:"name"`
	Metrics      []string `yaml:"metrics,omitempty" gcfg:"metric"`
	SeriesEvery  int      `yaml:"series_every" gcfg:"series-every"`
	SeriesEnergy bool     `yaml:"series_energy" gcfg:"series-energy"`
}

func DefaultConfig() *Config {
	s := sim.DefaultConfig()
	return &Config{
		Simulation: SimulationConfig{
			Dimensions:       s.Dimensions,
			G:                s.G,
			Softening:        s.Softening,
			Dt:               s.Dt,
			Method:           s.Method,
			Theta:            s.Theta,
			CollisionEpsilon: s.CollisionEpsilon,
			Capacity:         s.Capacity,
			MinCellSize:      s.MinCellSize,
			MergeThreshold:   s.MergeThreshold,
			MergeDamping:     s.MergeDamping,
			Steps:            1000,
			ValidateState:    s.ValidateState,
			LogEvery:         s.LogEvery,
		},
		Generator: generator.DefaultParams(),
		Output:    OutputConfig{SeriesEvery: 10},
	}
}

// Load reads path on top of DefaultConfig. Files ending in .gcfg or .ini
// are parsed as gcfg, everything else as yaml.
func Load(path string) (*Config, error) {
	return LoadOver(DefaultConfig(), path)
}

// LoadOver reads path on top of a copy of base, so values the file leaves
// out keep base's settings. base itself is not modified.
func LoadOver(base *Config, path string) (*Config, error) {
	c := *base
	c.Output.Metrics = append([]string(nil), base.Output.Metrics...)
	cfg := &c
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcfg", ".ini":
		if err := gcfg.ReadFileInto(cfg, path); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	return cfg, nil
}

// Save writes cfg as yaml.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write config %s", path)
}

// SimConfig converts the simulation section. The generator's G follows
// the simulation's so orbital velocities stay consistent.
func (c *Config) SimConfig() sim.Config {
	s := sim.DefaultConfig()
	s.Dimensions = c.Simulation.Dimensions
	s.G = c.Simulation.G
	s.Softening = c.Simulation.Softening
	s.Dt = c.Simulation.Dt
	s.Method = c.Simulation.Method
	s.Theta = c.Simulation.Theta
	s.CollisionEpsilon = c.Simulation.CollisionEpsilon
	s.Capacity = c.Simulation.Capacity
	s.MinCellSize = c.Simulation.MinCellSize
	s.MergeThreshold = c.Simulation.MergeThreshold
	s.MergeDamping = c.Simulation.MergeDamping
	s.Steps = c.Simulation.Steps
	if c.Simulation.Workers > 0 {
		s.Workers = c.Simulation.Workers
	}
	s.ValidateState = c.Simulation.ValidateState
	s.LogEvery = c.Simulation.LogEvery
	return s
}

func (c *Config) ExperimentConfig() experiment.Config {
	gen := c.Generator
	gen.G = c.Simulation.G
	return experiment.Config{
		Sim:          c.SimConfig(),
		Generator:    gen,
		Metrics:      c.Output.Metrics,
		SeriesEvery:  c.Output.SeriesEvery,
		SeriesEnergy: c.Output.SeriesEnergy,
	}
}

// Env is read from the process environment.
type Env struct {
	Production bool `env:"PRODUCTION" envDefault:"false"`
	// Levels are {trace, debug, info, warn, error, fatal, panic}.
	LogLevel string `env:"LOGLEVEL" envDefault:"info"`
	DataDir  string `env:"GRAVSIM_DATA" envDefault:"data"`
}

func GetEnv() (Env, error) {
	e := Env{}
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "parse environment")
	}
	return e, nil
}
