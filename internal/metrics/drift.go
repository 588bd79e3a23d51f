package metrics

import (
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/spill"
)

// Centroid reports how far the centroid of the in-water LEs has moved, in
// metres, from where it was first observed.
type Centroid struct {
	name    string
	start   drift.WorldPoint3D
	started bool
	last    float64
}

func NewCentroid() *Centroid {
	return &Centroid{name: "centroid_drift_m"}
}

func (c *Centroid) Name() string { return c.name }

func (c *Centroid) Observe(set *spill.LESet, t drift.Seconds) {
	center, ok := CentroidOf(inWater(set.LEs))
	if !ok {
		return
	}
	if !c.started {
		c.start = center
		c.started = true
	}
	c.last = Distance(c.start, center)
}

func (c *Centroid) Value() float64 { return c.last }

func (c *Centroid) Reset() {
	c.started = false
	c.start = drift.WorldPoint3D{}
	c.last = 0
}

// Spread reports the horizontal standard deviation of the in-water LEs at
// the last observation, in metres.
type Spread struct {
	name string
	last float64
}

func NewSpread() *Spread {
	return &Spread{name: "spread_m"}
}

func (s *Spread) Name() string { return s.name }

func (s *Spread) Observe(set *spill.LESet, t drift.Seconds) {
	s.last = SpreadOf(inWater(set.LEs))
}

func (s *Spread) Value() float64 { return s.last }
func (s *Spread) Reset()         { s.last = 0 }
