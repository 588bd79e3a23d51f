package metrics

import (
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/spill"
)

// MaxDepth tracks the deepest in-water LE seen over the run.
type MaxDepth struct {
	name  string
	depth float64
}

func NewMaxDepth() *MaxDepth {
	return &MaxDepth{name: "max_depth_m"}
}

func (m *MaxDepth) Name() string { return m.name }

func (m *MaxDepth) Observe(set *spill.LESet, t drift.Seconds) {
	for _, le := range set.LEs {
		if le.Status == drift.InWater && le.P.Z > m.depth {
			m.depth = le.P.Z
		}
	}
}

func (m *MaxDepth) Value() float64 { return m.depth }
func (m *MaxDepth) Reset()         { m.depth = 0 }

// Beached is the fraction of released LEs that are on land.
type Beached struct {
	name     string
	released int
	onLand   int
}

func NewBeached() *Beached {
	return &Beached{name: "beached_fraction"}
}

func (b *Beached) Name() string { return b.name }

func (b *Beached) Observe(set *spill.LESet, t drift.Seconds) {
	b.released = set.Len() - set.Count(drift.NotReleased)
	b.onLand = set.Count(drift.OnLand)
}

func (b *Beached) Value() float64 {
	if b.released == 0 {
		return 0
	}
	return float64(b.onLand) / float64(b.released)
}

func (b *Beached) Reset() {
	b.released = 0
	b.onLand = 0
}
