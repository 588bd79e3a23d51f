package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/driftsim/internal/drift"
)

// CentroidOf returns the mean position of points. Longitudes are averaged
// directly, so sets straddling the antimeridian are not supported.
func CentroidOf(points []drift.WorldPoint3D) (drift.WorldPoint3D, bool) {
	if len(points) == 0 {
		return drift.WorldPoint3D{}, false
	}
	lat := make([]float64, len(points))
	lon := make([]float64, len(points))
	z := make([]float64, len(points))
	for i, p := range points {
		lat[i], lon[i], z[i] = p.Lat, p.Long, p.Z
	}
	return drift.WorldPoint3D{
		Lat:  stat.Mean(lat, nil),
		Long: stat.Mean(lon, nil),
		Z:    stat.Mean(z, nil),
	}, true
}

// SpreadOf is the horizontal standard deviation of points in metres:
// sqrt(var(x) + var(y)) in a local east/north frame.
func SpreadOf(points []drift.WorldPoint3D) float64 {
	if len(points) < 2 {
		return 0
	}
	ref := points[0]
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], _ = ref.Delta(p)
	}
	_, vx := stat.PopMeanVariance(xs, nil)
	_, vy := stat.PopMeanVariance(ys, nil)
	return math.Sqrt(vx + vy)
}

// Distance is the horizontal separation of p and q in metres.
func Distance(p, q drift.WorldPoint3D) float64 {
	dx, dy, _ := p.Delta(q)
	return math.Hypot(dx, dy)
}

func inWater(les []drift.LERec) []drift.WorldPoint3D {
	out := make([]drift.WorldPoint3D, 0, len(les))
	for _, le := range les {
		if le.Status == drift.InWater {
			out = append(out, le.P)
		}
	}
	return out
}
