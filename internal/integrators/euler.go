package integrators

import "github.com/san-kum/driftsim/internal/drift"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f Field, p drift.WorldPoint3D, t, dt float64) drift.WorldPoint3D {
	v := f.Velocity(p, t)
	return p.Offset(v.U*dt, v.V*dt, 0)
}
