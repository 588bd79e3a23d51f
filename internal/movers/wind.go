package movers

import (
	"fmt"
	"math"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/environment"
	"github.com/san-kum/driftsim/internal/integrators"
)

const (
	DefaultSpeedScale = 2.0
	DefaultAngleScale = 0.4
)

// Wind pushes surface LEs with a fraction (the LE windage) of a point wind
// record.
type Wind struct {
	*drift.Base

	// SpeedScale is the one-sigma speed perturbation in m/s; AngleScale the
	// one-sigma direction perturbation in radians.
	SpeedScale float64
	AngleScale float64

	// Location is where the record was measured, if known.
	Location *drift.WorldPoint3D

	wind  *environment.Wind
	integ integrators.Integrator
	basis *basis
}

func NewWind(owner drift.Map, name string, w *environment.Wind, seed int64) *Wind {
	return &Wind{
		Base:       drift.NewBase(owner, name),
		SpeedScale: DefaultSpeedScale,
		AngleScale: DefaultAngleScale,
		wind:       w,
		integ:      integrators.NewRK4(),
		basis:      newBasis(seed),
	}
}

func (w *Wind) ClassID() drift.ClassID { return drift.TypeWindMover }

func (w *Wind) IAm(id drift.ClassID) bool {
	if id == drift.TypeWindMover {
		return true
	}
	return w.Base.IAm(id)
}

func (w *Wind) Record() *environment.Wind { return w.wind }

// SetIntegrator replaces the default RK4 scheme.
func (w *Wind) SetIntegrator(i integrators.Integrator) { w.integ = i }

func (w *Wind) PrepareForStep(windowStart, windowEnd, modelTime drift.Seconds, uncertain bool) error {
	if err := w.Base.PrepareForStep(windowStart, windowEnd, modelTime, uncertain); err != nil {
		return err
	}
	if w.wind == nil {
		return drift.ErrMissingData
	}
	return nil
}

func (w *Wind) AddUncertainty(setIndex, leIndex int, v *drift.VelocityRec) error {
	if !w.UncertaintyActive() {
		return nil
	}
	if v == nil || w.wind == nil {
		return drift.ErrMissingData
	}

	var r [2]float64
	w.basis.draw(setIndex, leIndex, r[:])

	speed := math.Max(0, v.Speed()+w.SpeedScale*r[0])
	angle := math.Atan2(v.V, v.U) + w.AngleScale*r[1]
	v.U = speed * math.Cos(angle)
	v.V = speed * math.Sin(angle)
	return nil
}

func (w *Wind) UpdateUncertainty() error {
	if !w.RefreshDue() {
		return nil
	}
	w.basis.refresh()
	w.MarkRefreshed()
	return nil
}

func (w *Wind) Move(timeStep drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	// wind acts on floating LEs only
	if w.wind == nil || le.Status != drift.InWater || le.P.Z > 0 || le.Windage == 0 {
		return le.P
	}
	uncertain := leType == drift.UncertaintyLE
	field := integrators.FieldFunc(func(p drift.WorldPoint3D, t float64) drift.VelocityRec {
		v := w.wind.Value(drift.Seconds(math.Round(t)))
		if uncertain {
			if err := w.AddUncertainty(setIndex, leIndex, &v); err != nil {
				v = w.wind.Value(drift.Seconds(math.Round(t)))
			}
		}
		return v.Scale(le.Windage)
	})
	return w.integ.Step(field, le.P, float64(w.ModelTime()), float64(timeStep))
}

func (w *Wind) VelocityAtPoint(p drift.WorldPoint3D) (string, bool) {
	if w.wind == nil {
		return "", false
	}
	return describeVelocity(fmt.Sprintf("wind %q", w.Name()), w.wind.Value(w.ModelTime())), true
}

func (w *Wind) Points() []drift.WorldPoint3D {
	if w.Location == nil {
		return nil
	}
	return []drift.WorldPoint3D{*w.Location}
}
