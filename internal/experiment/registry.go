package experiment

import (
	"fmt"
	"slices"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/environment"
	"github.com/san-kum/driftsim/internal/integrators"
	"github.com/san-kum/driftsim/internal/metrics"
	"github.com/san-kum/driftsim/internal/movers"
	"github.com/san-kum/driftsim/internal/sim"
)

// Env carries what a mover factory needs beyond its own config.
type Env struct {
	Origin drift.WorldPoint3D
	Seed   int64
}

type MoverFactory func(r *Registry, mc config.MoverConfig, env Env) (drift.Mover, error)

type Registry struct {
	movers      map[string]MoverFactory
	integrators map[string]func() integrators.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		movers:      make(map[string]MoverFactory),
		integrators: make(map[string]func() integrators.Integrator),
	}

	r.integrators["euler"] = func() integrators.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() integrators.Integrator { return integrators.NewRK4() }

	r.movers["mover"] = newBaseMover
	r.movers["constant"] = newConstantMover
	r.movers["wind"] = newWindMover
	r.movers["random"] = newRandomMover
	r.movers["random_vertical"] = newRandomVerticalMover

	return r
}

// RegisterMover adds or replaces the factory for kind.
func (r *Registry) RegisterMover(kind string, f MoverFactory) {
	r.movers[kind] = f
}

// GetMover builds a mover from its config and arms its uncertainty window.
func (r *Registry) GetMover(mc config.MoverConfig, env Env) (drift.Mover, error) {
	fn, ok := r.movers[mc.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown mover kind: %s", mc.Kind)
	}
	m, err := fn(r, mc, env)
	if err != nil {
		return nil, fmt.Errorf("mover %q: %w", mc.Name, err)
	}
	if u := mc.Uncertainty; u != nil {
		if a, ok := m.(uncertaintyArmer); ok {
			a.SetUncertainty(u.Start, u.Duration)
			if u.RefreshInterval > 0 {
				a.SetRefreshInterval(u.RefreshInterval)
			}
		}
	}
	return m, nil
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListMovers() []string {
	names := make([]string, 0, len(r.movers))
	for name := range r.movers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return []sim.Metric{
		metrics.NewCentroid(),
		metrics.NewSpread(),
		metrics.NewMaxDepth(),
		metrics.NewBeached(),
		metrics.NewPeriod(),
	}
}

type uncertaintyArmer interface {
	SetUncertainty(start, duration drift.Seconds)
	SetRefreshInterval(d drift.Seconds)
}

type integratorSetter interface {
	SetIntegrator(i integrators.Integrator)
}

func (r *Registry) applyIntegrator(m drift.Mover, name string) error {
	if name == "" {
		return nil
	}
	s, ok := m.(integratorSetter)
	if !ok {
		return fmt.Errorf("%s movers do not integrate", m.ClassID())
	}
	integ, err := r.GetIntegrator(name)
	if err != nil {
		return err
	}
	s.SetIntegrator(integ)
	return nil
}

func factor(mc config.MoverConfig) (float64, bool) {
	if mc.Uncertainty == nil || mc.Uncertainty.Factor == 0 {
		return 0, false
	}
	return mc.Uncertainty.Factor, true
}

func newBaseMover(_ *Registry, mc config.MoverConfig, _ Env) (drift.Mover, error) {
	return drift.NewBase(nil, mc.Name), nil
}

func newConstantMover(r *Registry, mc config.MoverConfig, env Env) (drift.Mover, error) {
	c := movers.NewConstant(nil, mc.Name, drift.VelocityRec{U: mc.U, V: mc.V}, env.Seed)
	if f, ok := factor(mc); ok {
		c.AlongUncertainty *= f
		c.CrossUncertainty *= f
	}
	if err := r.applyIntegrator(c, mc.Integrator); err != nil {
		return nil, err
	}
	return c, nil
}

func newWindMover(r *Registry, mc config.MoverConfig, env Env) (drift.Mover, error) {
	if mc.Wind == nil {
		return nil, fmt.Errorf("wind mover needs a wind record")
	}
	units := mc.Wind.Units
	if units == "" {
		units = "mps"
	}
	rec, err := environment.NewWind(mc.Wind.Series, units)
	if err != nil {
		return nil, err
	}
	w := movers.NewWind(nil, mc.Name, rec, env.Seed)
	station := env.Origin
	if mc.Wind.Station != nil {
		station = *mc.Wind.Station
	}
	w.Location = &station
	if f, ok := factor(mc); ok {
		w.SpeedScale *= f
		w.AngleScale *= f
	}
	if err := r.applyIntegrator(w, mc.Integrator); err != nil {
		return nil, err
	}
	return w, nil
}

func newRandomMover(_ *Registry, mc config.MoverConfig, env Env) (drift.Mover, error) {
	d := mc.Diffusion
	if d == 0 {
		d = movers.DefaultDiffusion
	}
	if d < 0 {
		return nil, fmt.Errorf("diffusion must not be negative, got %g", d)
	}
	m := movers.NewRandom(nil, mc.Name, d, env.Seed)
	if f, ok := factor(mc); ok {
		m.UncertaintyFactor = f
	}
	return m, nil
}

func newRandomVerticalMover(_ *Registry, mc config.MoverConfig, env Env) (drift.Mover, error) {
	h, v := mc.Diffusion, mc.VerticalDiffusion
	if h == 0 {
		h = movers.DefaultDiffusion
	}
	if v == 0 {
		v = movers.DefaultVerticalDiffusion
	}
	if h < 0 || v < 0 {
		return nil, fmt.Errorf("diffusion must not be negative")
	}
	m := movers.NewRandomVertical(nil, mc.Name, h, v, env.Seed)
	if mc.MixedLayerDepth > 0 {
		m.MixedLayerDepth = mc.MixedLayerDepth
	}
	if f, ok := factor(mc); ok {
		m.UncertaintyFactor = f
	}
	return m, nil
}
