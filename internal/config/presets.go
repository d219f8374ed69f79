package config

import (
	"slices"

	"github.com/san-kum/dsmath/internal/sweep"
)

var (
	wideRange   = sweep.Range{From: -10, To: 10, Step: 0.1}
	narrowRange = sweep.Range{From: -2, To: 2, Step: 0.1}
)

var Presets = map[string]map[string]*Config{
	"quintic": {
		"good": {
			Function: "quintic", Points: 7, Step: 0.25, Order: 6,
			Range: wideRange, Workers: DefaultWorkers,
		},
		"bad": {
			Function: "quintic", Points: 7, Step: 1e-6, Order: 6,
			Range: wideRange, Workers: DefaultWorkers,
		},
	},
	"gaussian": {
		"default": {
			Function: "gaussian", Points: 9, Step: 0.02, Order: 5,
			Range: wideRange, Workers: DefaultWorkers,
		},
	},
	"sin": {
		"fine": {
			Function: "sin", Points: 5, Step: 0.001, Order: 3,
			Range: narrowRange, Workers: DefaultWorkers,
		},
		"coarse": {
			Function: "sin", Points: 3, Step: 0.1, Order: 2,
			Range: narrowRange, Workers: DefaultWorkers,
		},
	},
	"runge": {
		"default": {
			Function: "runge", Points: 9, Step: 0.01, Order: 4,
			Range: sweep.Range{From: -1, To: 1, Step: 0.02}, Workers: DefaultWorkers,
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(function, preset string) *Config {
	functionPresets, ok := Presets[function]
	if !ok {
		return nil
	}
	cfg, ok := functionPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	return &c
}

// ListPresets returns the preset names of function, sorted.
func ListPresets(function string) []string {
	functionPresets, ok := Presets[function]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(functionPresets))
	for name := range functionPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
