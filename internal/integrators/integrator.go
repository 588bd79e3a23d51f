package integrators

import "github.com/san-kum/driftsim/internal/drift"

// Field is a velocity field sampled by position and time (seconds).
type Field interface {
	Velocity(p drift.WorldPoint3D, t float64) drift.VelocityRec
}

// FieldFunc adapts a function to Field.
type FieldFunc func(p drift.WorldPoint3D, t float64) drift.VelocityRec

func (f FieldFunc) Velocity(p drift.WorldPoint3D, t float64) drift.VelocityRec {
	return f(p, t)
}

// Integrator advances a position through a field over one step.
type Integrator interface {
	Step(f Field, p drift.WorldPoint3D, t, dt float64) drift.WorldPoint3D
}
