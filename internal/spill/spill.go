package spill

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/driftsim/internal/drift"
)

var ErrInvalidSource = errors.New("spill: invalid source")

// PointSource releases NumLEs elements from one position, evenly spaced in
// time over [ReleaseStart, ReleaseEnd].
type PointSource struct {
	Position     drift.WorldPoint3D
	NumLEs       int
	ReleaseStart drift.Seconds
	ReleaseEnd   drift.Seconds
	// WindageMin and WindageMax bound the per-LE windage, drawn uniformly.
	WindageMin float64
	WindageMax float64
}

func (s PointSource) Validate() error {
	if s.NumLEs <= 0 {
		return fmt.Errorf("%w: num_les must be positive, got %d", ErrInvalidSource, s.NumLEs)
	}
	if s.ReleaseEnd < s.ReleaseStart {
		return fmt.Errorf("%w: release ends before it starts", ErrInvalidSource)
	}
	if s.WindageMin < 0 || s.WindageMax < s.WindageMin {
		return fmt.Errorf("%w: windage range [%g, %g]", ErrInvalidSource, s.WindageMin, s.WindageMax)
	}
	return nil
}

// LESet is one array of LEs advanced together. The forecast set and its
// uncertainty twin are separate sets.
type LESet struct {
	Name      string
	Uncertain bool
	LEs       []drift.LERec
}

func New(name string, src PointSource, seed int64) (*LESet, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	windage := distuv.Uniform{Min: src.WindageMin, Max: src.WindageMax, Src: rand.NewPCG(uint64(seed), 0x5eed)}
	span := src.ReleaseEnd - src.ReleaseStart

	les := make([]drift.LERec, src.NumLEs)
	for i := range les {
		release := src.ReleaseStart
		if src.NumLEs > 1 {
			release += span * drift.Seconds(i) / drift.Seconds(src.NumLEs-1)
		}
		w := src.WindageMin
		if src.WindageMax > src.WindageMin {
			w = windage.Rand()
		}
		les[i] = drift.LERec{
			ID:          i,
			P:           src.Position,
			ReleaseTime: release,
			Status:      drift.NotReleased,
			Windage:     w,
		}
	}
	return &LESet{Name: name, LEs: les}, nil
}

// Release puts every LE due by t in the water and returns how many were
// released by this call.
func (s *LESet) Release(t drift.Seconds) int {
	n := 0
	for i := range s.LEs {
		if s.LEs[i].Status == drift.NotReleased && s.LEs[i].ReleaseTime <= t {
			s.LEs[i].Status = drift.InWater
			n++
		}
	}
	return n
}

func (s *LESet) Len() int { return len(s.LEs) }

// Active counts LEs in the water.
func (s *LESet) Active() int {
	n := 0
	for _, le := range s.LEs {
		if le.Status == drift.InWater {
			n++
		}
	}
	return n
}

// Count returns the number of LEs with the given status.
func (s *LESet) Count(status drift.LEStatus) int {
	n := 0
	for _, le := range s.LEs {
		if le.Status == status {
			n++
		}
	}
	return n
}

func (s *LESet) Positions() []drift.WorldPoint3D {
	out := make([]drift.WorldPoint3D, len(s.LEs))
	for i, le := range s.LEs {
		out[i] = le.P
	}
	return out
}

// LEType is the kind movers see for LEs of this set.
func (s *LESet) LEType() drift.LEType {
	if s.Uncertain {
		return drift.UncertaintyLE
	}
	return drift.ForecastLE
}

// Clone copies the set, e.g. to build the uncertainty twin of a forecast set.
func (s *LESet) Clone(name string, uncertain bool) *LESet {
	les := make([]drift.LERec, len(s.LEs))
	copy(les, s.LEs)
	return &LESet{Name: name, Uncertain: uncertain, LEs: les}
}
