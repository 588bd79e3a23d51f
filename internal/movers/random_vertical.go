package movers

import (
	"math"

	"github.com/san-kum/driftsim/internal/drift"
)

const (
	// DefaultVerticalDiffusion is in cm²/s.
	DefaultVerticalDiffusion = 5.0
	DefaultMixedLayerDepth   = 10.0
)

// RandomVertical adds vertical mixing inside a surface mixed layer to the
// horizontal diffusion of Random.
type RandomVertical struct {
	*Random

	// VerticalCoefficient is in cm²/s.
	VerticalCoefficient float64
	// MixedLayerDepth bounds mixing, in metres.
	MixedLayerDepth float64
}

func NewRandomVertical(owner drift.Map, name string, horizontal, vertical float64, seed int64) *RandomVertical {
	return &RandomVertical{
		Random:              NewRandom(owner, name, horizontal, seed),
		VerticalCoefficient: vertical,
		MixedLayerDepth:     DefaultMixedLayerDepth,
	}
}

func (r *RandomVertical) ClassID() drift.ClassID { return drift.TypeRandomVerticalMover }

func (r *RandomVertical) IAm(id drift.ClassID) bool {
	if id == drift.TypeRandomVerticalMover {
		return true
	}
	return r.Random.IAm(id)
}

func (r *RandomVertical) Is3D() bool { return true }

func (r *RandomVertical) ArrowDepth() float64 { return r.MixedLayerDepth / 2 }

func (r *RandomVertical) Move(timeStep drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	if le.Status != drift.InWater {
		return le.P
	}
	z := r.draws(setIndex, leIndex, 3)
	p := r.horizontal(timeStep, le, leType, z)
	depth := le.P.Z + sigma(r.VerticalCoefficient, timeStep)*z[2]
	if r.MixedLayerDepth > 0 && le.P.Z > r.MixedLayerDepth {
		// below the mixed layer only the surface bounds an LE
		p.Z = math.Abs(depth)
	} else {
		p.Z = reflect(depth, r.MixedLayerDepth)
	}
	return p
}

// reflect folds depth back into [0, bottom].
func reflect(depth, bottom float64) float64 {
	if bottom <= 0 {
		return math.Max(0, depth)
	}
	d := math.Mod(math.Abs(depth), 2*bottom)
	if d > bottom {
		d = 2*bottom - d
	}
	return d
}
