package metrics

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/spill"
)

// minPeriodSamples is the shortest velocity record worth a spectrum.
const minPeriodSamples = 8

// Period reports the dominant period, in seconds, of the centroid's
// oscillating motion: the strongest line in the rotary spectrum of the
// centroid velocity after the mean drift is removed. It is 0 when the
// record is too short or the centroid moves steadily.
type Period struct {
	name    string
	start   drift.WorldPoint3D
	started bool
	times   []drift.Seconds
	offsets []complex128
}

func NewPeriod() *Period {
	return &Period{name: "drift_period_s"}
}

func (p *Period) Name() string { return p.name }

func (p *Period) Observe(set *spill.LESet, t drift.Seconds) {
	center, ok := CentroidOf(inWater(set.LEs))
	if !ok {
		return
	}
	if n := len(p.times); n > 0 && p.times[n-1] >= t {
		return
	}
	if !p.started {
		p.start = center
		p.started = true
	}
	dx, dy, _ := p.start.Delta(center)
	p.times = append(p.times, t)
	p.offsets = append(p.offsets, complex(dx, dy))
}

func (p *Period) Value() float64 {
	return DominantPeriod(p.times, p.offsets)
}

func (p *Period) Reset() {
	p.started = false
	p.start = drift.WorldPoint3D{}
	p.times = p.times[:0]
	p.offsets = p.offsets[:0]
}

// DominantPeriod finds the strongest oscillation in a track of east+i*north
// offsets sampled at times. Sampling is taken as uniform at the mean
// interval.
func DominantPeriod(times []drift.Seconds, offsets []complex128) float64 {
	n := len(offsets) - 1
	if n < minPeriodSamples || len(times) != len(offsets) {
		return 0
	}
	dt := float64(times[n]-times[0]) / float64(n)
	if dt <= 0 {
		return 0
	}

	vel := make([]complex128, n)
	var mean complex128
	for i := range vel {
		vel[i] = (offsets[i+1] - offsets[i]) / complex(dt, 0)
		mean += vel[i]
	}
	mean /= complex(float64(n), 0)
	for i := range vel {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		vel[i] = (vel[i] - mean) * complex(w, 0)
	}

	spectrum := fft.FFT(vel)
	best, bestMag := 0, 1e-9
	for k := 1; k < n; k++ {
		if mag := cmplx.Abs(spectrum[k]); mag > bestMag {
			best, bestMag = k, mag
		}
	}
	if best == 0 {
		return 0
	}
	// bins past n/2 are clockwise rotation at the mirrored frequency
	k := min(best, n-best)
	return float64(n) * dt / float64(k)
}
