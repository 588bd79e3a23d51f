package integrators

import "github.com/san-kum/driftsim/internal/drift"

// RK4 is stateless so one instance may be shared by concurrent movers.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(f Field, p drift.WorldPoint3D, t, dt float64) drift.WorldPoint3D {
	half := dt * 0.5

	k1 := f.Velocity(p, t)
	k2 := f.Velocity(p.Offset(k1.U*half, k1.V*half, 0), t+half)
	k3 := f.Velocity(p.Offset(k2.U*half, k2.V*half, 0), t+half)
	k4 := f.Velocity(p.Offset(k3.U*dt, k3.V*dt, 0), t+dt)

	dt6 := dt / 6.0
	u := dt6 * (k1.U + 2*k2.U + 2*k3.U + k4.U)
	v := dt6 * (k1.V + 2*k2.V + 2*k3.V + k4.V)
	return p.Offset(u, v, 0)
}
