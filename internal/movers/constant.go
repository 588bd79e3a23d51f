package movers

import (
	"fmt"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/integrators"
)

// Constant moves LEs with a uniform current.
type Constant struct {
	*Current
	Velocity drift.VelocityRec
	integ    integrators.Integrator
}

func NewConstant(owner drift.Map, name string, v drift.VelocityRec, seed int64) *Constant {
	return &Constant{
		Current:  NewCurrent(owner, name, seed),
		Velocity: v,
		integ:    integrators.NewEuler(),
	}
}

func (c *Constant) ClassID() drift.ClassID { return drift.TypeConstantMover }

func (c *Constant) IAm(id drift.ClassID) bool {
	if id == drift.TypeConstantMover {
		return true
	}
	return c.Current.IAm(id)
}

func (c *Constant) SetIntegrator(i integrators.Integrator) { c.integ = i }

func (c *Constant) Move(timeStep drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	if le.Status != drift.InWater || timeStep == 0 {
		return le.P
	}
	v := c.Velocity
	if leType == drift.UncertaintyLE {
		// on failure the LE keeps the unperturbed current
		if err := c.AddUncertainty(setIndex, leIndex, &v); err != nil {
			v = c.Velocity
		}
	}
	field := integrators.FieldFunc(func(drift.WorldPoint3D, float64) drift.VelocityRec { return v })
	return c.integ.Step(field, le.P, float64(c.ModelTime()), float64(timeStep))
}

func (c *Constant) VelocityAtPoint(p drift.WorldPoint3D) (string, bool) {
	return describeVelocity(fmt.Sprintf("current %q", c.Name()), c.Velocity), true
}
