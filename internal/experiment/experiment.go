package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/lemap"
	"github.com/san-kum/driftsim/internal/logging"
	"github.com/san-kum/driftsim/internal/observability"
	"github.com/san-kum/driftsim/internal/sim"
	"github.com/san-kum/driftsim/internal/spill"
)

// Experiment turns a config into runnable simulations.
type Experiment struct {
	cfg       *config.Config
	reg       *Registry
	log       logging.Logger
	collector *observability.StepCollector
	simulator *sim.Simulator
}

type Option func(*Experiment)

func WithLogger(l logging.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.log = l
		}
	}
}

func WithCollector(c *observability.StepCollector) Option {
	return func(e *Experiment) { e.collector = c }
}

func New(cfg *config.Config, reg *Registry, opts ...Option) *Experiment {
	if reg == nil {
		reg = NewRegistry()
	}
	e := &Experiment{cfg: cfg, reg: reg, log: logging.Noop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Setup validates the config and builds the simulator for cfg.Seed.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	s, err := e.Build(e.cfg.Seed)
	if err != nil {
		return err
	}
	e.simulator = s
	return nil
}

// BuildMap creates the configured movers under a fresh map. Each mover gets
// its own seed derived from seed and its position in the list.
func (e *Experiment) BuildMap(seed int64) (*lemap.Map, error) {
	policy, err := lemap.ParseFailurePolicy(e.cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}
	m := lemap.New(e.cfg.Name,
		lemap.WithFailurePolicy(policy),
		lemap.WithWorkers(e.cfg.Workers),
		lemap.WithCollector(e.collector),
	)
	for i, mc := range e.cfg.Movers {
		mv, err := e.reg.GetMover(mc, Env{Origin: e.cfg.Origin(), Seed: seed + int64(i)*7919})
		if err != nil {
			return nil, err
		}
		if err := m.Add(mv); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Build assembles a simulator with the default metrics for one seed.
func (e *Experiment) Build(seed int64) (*sim.Simulator, error) {
	m, err := e.BuildMap(seed)
	if err != nil {
		return nil, err
	}
	set, err := spill.New("forecast", spill.PointSource{
		Position:     e.cfg.Origin(),
		NumLEs:       e.cfg.Spill.NumLEs,
		ReleaseStart: e.cfg.Spill.ReleaseStart,
		ReleaseEnd:   e.cfg.Spill.ReleaseEnd,
		WindageMin:   e.cfg.Spill.WindageMin,
		WindageMax:   e.cfg.Spill.WindageMax,
	}, seed)
	if err != nil {
		return nil, fmt.Errorf("spill: %w", err)
	}

	s := sim.New(m, set)
	s.SetLogger(e.log)
	for _, metric := range e.reg.DefaultMetrics() {
		s.AddMetric(metric)
	}
	return s, nil
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		StartTime:         e.cfg.StartTime,
		TimeStep:          e.cfg.TimeStep,
		Duration:          e.cfg.Duration,
		Seed:              e.cfg.Seed,
		Uncertain:         e.cfg.Uncertain,
		Workers:           e.cfg.Workers,
		ValidatePositions: true,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.SimConfig())
}

// RunEnsemble runs n members seeded from cfg.Seed upward.
func (e *Experiment) RunEnsemble(ctx context.Context, n int) ([]*sim.Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("ensemble needs at least one run, got %d", n)
	}
	return sim.NewEnsemble(e.Build, n, e.cfg.Seed).Run(ctx, e.SimConfig())
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}
