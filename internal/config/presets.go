package config

import (
	"slices"

	"github.com/san-kum/driftsim/internal/environment"
)

var (
	gulf      = SpillConfig{Lat: 28.5, Long: -89.0, NumLEs: 200, WindageMin: 0.01, WindageMax: 0.04}
	gulfSlow  = SpillConfig{Lat: 28.5, Long: -89.0, NumLEs: 200, ReleaseEnd: 21600, WindageMin: 0.01, WindageMax: 0.04}
	georges   = SpillConfig{Lat: 41.5, Long: -67.5, NumLEs: 100, WindageMin: 0.02, WindageMax: 0.03}
	caribbean = SpillConfig{Lat: 10.0, Long: -70.0, NumLEs: 50}
)

func dayOfWind(speed float64) *WindConfig {
	return &WindConfig{
		Units: "knots",
		Series: []environment.WindValue{
			{Time: 0, Speed: speed, Direction: 270},
			{Time: 21600, Speed: speed * 1.5, Direction: 240},
			{Time: 43200, Speed: speed * 2, Direction: 200},
			{Time: 86400, Speed: speed, Direction: 180},
		},
	}
}

var Presets = map[string]map[string]*Config{
	"current": {
		"steady": {
			Name: "current/steady", TimeStep: 900, Duration: 86400, Spill: gulf,
			Movers: []MoverConfig{
				{Kind: "constant", Name: "loop_current", U: 0.3, V: 0.1},
			},
		},
		"uncertain": {
			Name: "current/uncertain", TimeStep: 900, Duration: 172800, Uncertain: true, Spill: gulfSlow,
			Movers: []MoverConfig{
				{Kind: "constant", Name: "loop_current", U: 0.3, V: 0.1,
					Uncertainty: &UncertaintyConfig{Duration: 172800, RefreshInterval: 10800}},
				{Kind: "random", Name: "diffusion", Diffusion: DefaultDiffusion},
			},
		},
	},
	"wind": {
		"wind1": {
			Name: "wind/wind1", TimeStep: 3600, Duration: 3600, Spill: caribbean,
			Movers: []MoverConfig{
				{Kind: "mover", Name: "wind1"},
			},
		},
		"storm": {
			Name: "wind/storm", TimeStep: 900, Duration: 86400, Uncertain: true, Spill: georges,
			Movers: []MoverConfig{
				{Kind: "wind", Name: "storm_wind", Integrator: "rk4", Wind: dayOfWind(25),
					Uncertainty: &UncertaintyConfig{Duration: 86400, RefreshInterval: 21600}},
				{Kind: "random", Name: "diffusion", Diffusion: DefaultDiffusion},
			},
		},
		"breeze": {
			Name: "wind/breeze", TimeStep: 900, Duration: 43200, Spill: gulf,
			Movers: []MoverConfig{
				{Kind: "wind", Name: "breeze", Wind: dayOfWind(8)},
			},
		},
	},
	"diffusion": {
		"surface": {
			Name: "diffusion/surface", TimeStep: 600, Duration: 43200, Spill: gulf,
			Movers: []MoverConfig{
				{Kind: "random", Name: "diffusion", Diffusion: DefaultDiffusion},
			},
		},
		"mixed_layer": {
			Name: "diffusion/mixed_layer", TimeStep: 600, Duration: 43200,
			Spill: SpillConfig{Lat: 28.5, Long: -89.0, Depth: 2, NumLEs: 200},
			Movers: []MoverConfig{
				{Kind: "random_vertical", Name: "mixing", Diffusion: DefaultDiffusion,
					VerticalDiffusion: 5, MixedLayerDepth: 20},
			},
		},
	},
}

// GetPreset returns a copy of the named preset with defaults filled in, or
// nil when there is no such preset.
func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	cfg, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.Workers == 0 {
		out.Workers = DefaultWorkers
	}
	if out.FailurePolicy == "" {
		out.FailurePolicy = "abort"
	}
	if out.Logging == (LoggingConfig{}) {
		out.Logging = LoggingConfig{Level: "info", Format: "text"}
	}
	return out
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func ListGroups() []string {
	groups := make([]string, 0, len(Presets))
	for g := range Presets {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	return groups
}
