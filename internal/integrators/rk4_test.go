package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/driftsim/internal/drift"
)

func uniform(u, v float64) Field {
	return FieldFunc(func(p drift.WorldPoint3D, t float64) drift.VelocityRec {
		return drift.VelocityRec{U: u, V: v}
	})
}

// ramp speeds up linearly in time: v(t) = a*t northward.
func ramp(a float64) Field {
	return FieldFunc(func(p drift.WorldPoint3D, t float64) drift.VelocityRec {
		return drift.VelocityRec{V: a * t}
	})
}

func TestUniformFieldAgrees(t *testing.T) {
	p0 := drift.WorldPoint3D{Lat: 30, Long: -80}
	f := uniform(0.5, -0.25)

	for _, integ := range []Integrator{NewEuler(), NewRK4()} {
		p := integ.Step(f, p0, 0, 3600)
		dx, dy, dz := p0.Delta(p)
		if math.Abs(dx-1800) > 1e-6 || math.Abs(dy+900) > 1e-6 || dz != 0 {
			t.Errorf("%T: displacement (%.6f, %.6f, %.6f)", integ, dx, dy, dz)
		}
	}
}

func TestRK4TimeVaryingAccuracy(t *testing.T) {
	p0 := drift.WorldPoint3D{Lat: 0, Long: 0}
	f := ramp(1e-4)
	dt := 600.0

	// exact: y = a/2 * (t1^2 - t0^2)
	want := 0.5 * 1e-4 * dt * dt

	p := NewRK4().Step(f, p0, 0, dt)
	_, dy, _ := p0.Delta(p)
	if math.Abs(dy-want) > 1e-6 {
		t.Errorf("RK4 dy = %.6f, want %.6f", dy, want)
	}

	p = NewEuler().Step(f, p0, 0, dt)
	_, dy, _ = p0.Delta(p)
	if dy != 0 {
		t.Errorf("Euler samples at t only, dy = %.6f", dy)
	}
}

func TestZeroStep(t *testing.T) {
	p0 := drift.WorldPoint3D{Lat: 10, Long: 10, Z: 2}
	if p := NewRK4().Step(uniform(3, 3), p0, 0, 0); p != p0 {
		t.Errorf("zero dt moved point to %v", p)
	}
}
