package config

import "sort"

// Presets are complete configurations for common scenarios.
var Presets = map[string]func() *Config{
	"galaxy": func() *Config {
		c := DefaultConfig()
		c.Generator.Kind = "orbital"
		c.Generator.N = 2000
		c.Simulation.Steps = 5000
		c.Simulation.Theta = 0.7
		return c
	},
	"binary": func() *Config {
		c := DefaultConfig()
		c.Generator.Kind = "attractors"
		c.Generator.Attractors = 2
		c.Generator.N = 800
		c.Simulation.Steps = 5000
		return c
	},
	"cluster": func() *Config {
		c := DefaultConfig()
		c.Simulation.Dimensions = 3
		c.Generator.Dimensions = 3
		c.Generator.N = 500
		c.Generator.Extent = 2e3
		c.Simulation.Method = "multipole"
		c.Simulation.Steps = 2000
		return c
	},
	"solar": func() *Config {
		c := DefaultConfig()
		c.Generator.Kind = "solar"
		c.Simulation.Method = "direct"
		c.Simulation.Dt = 3600
		c.Simulation.Steps = 24 * 365
		c.Simulation.LogEvery = 24 * 30
		c.Output.SeriesEvery = 24
		c.Output.SeriesEnergy = true
		return c
	},
	"collapse": func() *Config {
		c := DefaultConfig()
		c.Simulation.Dimensions = 3
		c.Generator.Dimensions = 3
		c.Generator.N = 1000
		c.Generator.Extent = 1e3
		c.Generator.MinMass = 1e12
		c.Generator.MaxMass = 1e13
		c.Simulation.MergeThreshold = 20
		c.Simulation.Steps = 3000
		return c
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
