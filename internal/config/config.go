package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/environment"
)

const (
	DefaultTimeStep  drift.Seconds = 900
	DefaultDuration  drift.Seconds = 86400
	DefaultNumLEs                  = 100
	DefaultLat                     = 28.5
	DefaultLong                    = -89.0
	DefaultDiffusion               = 100000.0
	DefaultWorkers                 = 1
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name          string        `yaml:"name"`
	StartTime     drift.Seconds `yaml:"start_time"`
	TimeStep      drift.Seconds `yaml:"time_step"`
	Duration      drift.Seconds `yaml:"duration"`
	Seed          int64         `yaml:"seed"`
	Uncertain     bool          `yaml:"uncertain"`
	Workers       int           `yaml:"workers"`
	FailurePolicy string        `yaml:"failure_policy"`
	Spill         SpillConfig   `yaml:"spill"`
	Movers        []MoverConfig `yaml:"movers"`
	Logging       LoggingConfig `yaml:"logging"`
}

type SpillConfig struct {
	Lat          float64       `yaml:"lat"`
	Long         float64       `yaml:"long"`
	Depth        float64       `yaml:"depth"`
	NumLEs       int           `yaml:"num_les"`
	ReleaseStart drift.Seconds `yaml:"release_start"`
	ReleaseEnd   drift.Seconds `yaml:"release_end"`
	WindageMin   float64       `yaml:"windage_min"`
	WindageMax   float64       `yaml:"windage_max"`
}

// MoverConfig describes one mover. Which fields apply depends on Kind.
type MoverConfig struct {
	Kind       string `yaml:"kind"`
	Name       string `yaml:"name"`
	Integrator string `yaml:"integrator,omitempty"`

	// constant current, m/s
	U float64 `yaml:"u,omitempty"`
	V float64 `yaml:"v,omitempty"`

	Wind *WindConfig `yaml:"wind,omitempty"`

	// diffusion coefficients in cm²/s, mixed layer depth in metres
	Diffusion         float64 `yaml:"diffusion,omitempty"`
	VerticalDiffusion float64 `yaml:"vertical_diffusion,omitempty"`
	MixedLayerDepth   float64 `yaml:"mixed_layer_depth,omitempty"`

	Uncertainty *UncertaintyConfig `yaml:"uncertainty,omitempty"`
}

type WindConfig struct {
	Units  string                  `yaml:"units"`
	Series []environment.WindValue `yaml:"series"`
	// Station is where the wind was measured; it defaults to the spill.
	Station *drift.WorldPoint3D `yaml:"station,omitempty"`
}

// UncertaintyConfig arms a mover's perturbation window [Start, Start+Duration).
type UncertaintyConfig struct {
	Start           drift.Seconds `yaml:"start"`
	Duration        drift.Seconds `yaml:"duration"`
	RefreshInterval drift.Seconds `yaml:"refresh_interval,omitempty"`
	// Factor overrides the mover's default perturbation scale when non-zero.
	Factor float64 `yaml:"factor,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:          "default",
		TimeStep:      DefaultTimeStep,
		Duration:      DefaultDuration,
		Workers:       DefaultWorkers,
		FailurePolicy: "abort",
		Spill: SpillConfig{
			Lat:        DefaultLat,
			Long:       DefaultLong,
			NumLEs:     DefaultNumLEs,
			WindageMin: 0.01,
			WindageMax: 0.04,
		},
		Movers: []MoverConfig{
			{Kind: "constant", Name: "current", U: 0.2, V: 0.05},
			{Kind: "random", Name: "diffusion", Diffusion: DefaultDiffusion},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what can be checked without knowing the mover kinds; the
// experiment registry rejects unknown kinds when it builds the map.
func (c *Config) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("%w: time_step must be positive, got %d", ErrInvalid, c.TimeStep)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalid, c.Duration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalid)
	}
	if c.Spill.NumLEs <= 0 {
		return fmt.Errorf("%w: spill.num_les must be positive", ErrInvalid)
	}
	if c.Spill.Lat < -90 || c.Spill.Lat > 90 {
		return fmt.Errorf("%w: spill.lat %g out of range", ErrInvalid, c.Spill.Lat)
	}

	seen := make(map[string]bool, len(c.Movers))
	for i, m := range c.Movers {
		if m.Kind == "" {
			return fmt.Errorf("%w: movers[%d] has no kind", ErrInvalid, i)
		}
		if m.Name == "" {
			return fmt.Errorf("%w: movers[%d] has no name", ErrInvalid, i)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate mover name %q", ErrInvalid, m.Name)
		}
		seen[m.Name] = true
		if u := m.Uncertainty; u != nil && u.Duration < 0 {
			return fmt.Errorf("%w: mover %q has negative uncertainty duration", ErrInvalid, m.Name)
		}
	}
	return nil
}

// Origin is the spill position.
func (c *Config) Origin() drift.WorldPoint3D {
	return drift.WorldPoint3D{Lat: c.Spill.Lat, Long: c.Spill.Long, Z: c.Spill.Depth}
}

func (c *Config) Mover(name string) (MoverConfig, bool) {
	for _, m := range c.Movers {
		if m.Name == name {
			return m, true
		}
	}
	return MoverConfig{}, false
}

// Clone returns a deep copy, so presets can be modified by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Movers = make([]MoverConfig, len(c.Movers))
	for i, m := range c.Movers {
		if m.Wind != nil {
			w := *m.Wind
			w.Series = append([]environment.WindValue(nil), m.Wind.Series...)
			if m.Wind.Station != nil {
				s := *m.Wind.Station
				w.Station = &s
			}
			m.Wind = &w
		}
		if m.Uncertainty != nil {
			u := *m.Uncertainty
			m.Uncertainty = &u
		}
		out.Movers[i] = m
	}
	return &out
}
