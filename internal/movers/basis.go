package movers

import (
	"math/rand/v2"
	"sync/atomic"

	"gonum.org/v1/gonum/stat/distuv"
)

// stream identifies one LE in one set.
func stream(set, le int) uint64 {
	return uint64(uint32(set))<<32 | uint64(uint32(le))
}

// mix is the splitmix64 finaliser.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// normals fills out with standard normal deviates for (key, set, le).
func normals(key uint64, set, le int, out []float64) {
	n := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(mix(key), mix(stream(set, le)))}
	for i := range out {
		out[i] = n.Rand()
	}
}

// basis is a per-LE perturbation basis. Refresh moves to a new epoch, which
// redraws every LE's deviates.
type basis struct {
	seed  uint64
	epoch atomic.Uint64
}

func newBasis(seed int64) *basis {
	return &basis{seed: uint64(seed)}
}

func (b *basis) refresh() {
	b.epoch.Add(1)
}

func (b *basis) Epoch() uint64 {
	return b.epoch.Load()
}

func (b *basis) draw(set, le int, out []float64) {
	normals(b.seed^mix(b.epoch.Load()), set, le, out)
}
