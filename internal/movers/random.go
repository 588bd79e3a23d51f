package movers

import (
	"math"

	"github.com/san-kum/driftsim/internal/drift"
)

const (
	// DefaultDiffusion is the horizontal diffusion coefficient in cm²/s.
	DefaultDiffusion         = 100000.0
	DefaultUncertaintyFactor = 2.0
)

// Random spreads LEs with horizontal diffusion.
type Random struct {
	*drift.Base

	// Coefficient is the diffusion coefficient in cm²/s.
	Coefficient float64
	// UncertaintyFactor scales Coefficient for uncertainty LEs while the
	// uncertainty window is active.
	UncertaintyFactor float64

	seed uint64
}

func NewRandom(owner drift.Map, name string, coefficient float64, seed int64) *Random {
	return &Random{
		Base:              drift.NewBase(owner, name),
		Coefficient:       coefficient,
		UncertaintyFactor: DefaultUncertaintyFactor,
		seed:              uint64(seed),
	}
}

func (r *Random) ClassID() drift.ClassID { return drift.TypeRandomMover }

func (r *Random) IAm(id drift.ClassID) bool {
	if id == drift.TypeRandomMover {
		return true
	}
	return r.Base.IAm(id)
}

// draws returns n deviates for the LE at the current model time.
func (r *Random) draws(setIndex, leIndex, n int) []float64 {
	out := make([]float64, n)
	normals(r.seed^mix(uint64(r.ModelTime())), setIndex, leIndex, out)
	return out
}

// sigma is the one-axis displacement standard deviation in metres for a
// coefficient in cm²/s.
func sigma(coefficient float64, timeStep drift.Seconds) float64 {
	if coefficient <= 0 || timeStep <= 0 {
		return 0
	}
	return math.Sqrt(2 * coefficient * 1e-4 * float64(timeStep))
}

func (r *Random) coefficient(leType drift.LEType) float64 {
	d := r.Coefficient
	if leType == drift.UncertaintyLE && r.UncertaintyActive() {
		d *= r.UncertaintyFactor
	}
	return d
}

func (r *Random) horizontal(timeStep drift.Seconds, le drift.LERec, leType drift.LEType, z []float64) drift.WorldPoint3D {
	s := sigma(r.coefficient(leType), timeStep)
	if s == 0 {
		return le.P
	}
	return le.P.Offset(s*z[0], s*z[1], 0)
}

func (r *Random) Move(timeStep drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	if le.Status != drift.InWater {
		return le.P
	}
	return r.horizontal(timeStep, le, leType, r.draws(setIndex, leIndex, 2))
}
