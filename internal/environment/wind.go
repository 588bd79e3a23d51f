package environment

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/driftsim/internal/drift"
)

var (
	ErrEmptySeries   = errors.New("environment: empty time series")
	ErrInvalidUnits  = errors.New("environment: invalid units")
	ErrDuplicateTime = errors.New("environment: duplicate times in series")
)

var speedToMPS = map[string]float64{
	"mps":              1.0,
	"m/s":              1.0,
	"meter per second": 1.0,
	"knots":            0.514444,
	"knot":             0.514444,
	"kph":              1.0 / 3.6,
	"km/h":             1.0 / 3.6,
	"mph":              0.44704,
	"miles per hour":   0.44704,
	"cm/s":             0.01,
}

// ConvertSpeed converts v between any two supported speed units.
func ConvertSpeed(v float64, from, to string) (float64, error) {
	f, ok := speedToMPS[strings.ToLower(from)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnits, from)
	}
	t, ok := speedToMPS[strings.ToLower(to)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnits, to)
	}
	return v * f / t, nil
}

// WindValue is one sample of a wind record. Direction is the compass
// bearing the wind blows from, in degrees.
type WindValue struct {
	Time      drift.Seconds `yaml:"time" json:"time"`
	Speed     float64       `yaml:"speed" json:"speed"`
	Direction float64       `yaml:"direction" json:"direction"`
}

// UV converts a (speed, direction-from) sample to eastward/northward
// components in the same speed units.
func (w WindValue) UV() drift.VelocityRec {
	rad := w.Direction * math.Pi / 180
	return drift.VelocityRec{
		U: -w.Speed * math.Sin(rad),
		V: -w.Speed * math.Cos(rad),
	}
}

// Wind is a point wind record interpolated in time.
type Wind struct {
	units  string
	scale  float64
	series []WindValue
	uv     []drift.VelocityRec
}

func NewWind(series []WindValue, units string) (*Wind, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	scale, ok := speedToMPS[strings.ToLower(units)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnits, units)
	}

	sorted := slices.Clone(series)
	slices.SortStableFunc(sorted, func(a, b WindValue) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Time == sorted[i-1].Time {
			return nil, fmt.Errorf("%w: t=%d", ErrDuplicateTime, sorted[i].Time)
		}
	}

	w := &Wind{units: strings.ToLower(units), scale: scale, series: sorted}
	w.uv = make([]drift.VelocityRec, len(sorted))
	for i, s := range sorted {
		w.uv[i] = s.UV().Scale(scale)
	}
	return w, nil
}

// ConstantWind is a single-sample record, valid for all time.
func ConstantWind(speed, direction float64, units string) (*Wind, error) {
	return NewWind([]WindValue{{Time: 0, Speed: speed, Direction: direction}}, units)
}

func (w *Wind) Units() string { return w.units }

func (w *Wind) Series() []WindValue { return slices.Clone(w.series) }

// Range returns the first and last sample times.
func (w *Wind) Range() (drift.Seconds, drift.Seconds) {
	return w.series[0].Time, w.series[len(w.series)-1].Time
}

// Value returns the wind at t in m/s, interpolating u and v linearly and
// holding the end values outside the record.
func (w *Wind) Value(t drift.Seconds) drift.VelocityRec {
	n := len(w.series)
	if n == 1 || t <= w.series[0].Time {
		return w.uv[0]
	}
	if t >= w.series[n-1].Time {
		return w.uv[n-1]
	}

	i, found := slices.BinarySearchFunc(w.series, t, func(s WindValue, t drift.Seconds) int {
		switch {
		case s.Time < t:
			return -1
		case s.Time > t:
			return 1
		}
		return 0
	})
	if found {
		return w.uv[i]
	}

	t0, t1 := w.series[i-1].Time, w.series[i].Time
	frac := float64(t-t0) / float64(t1-t0)
	a, b := w.uv[i-1], w.uv[i]
	return drift.VelocityRec{
		U: a.U + frac*(b.U-a.U),
		V: a.V + frac*(b.V-a.V),
	}
}

// ValueIn returns the wind at t in the given units.
func (w *Wind) ValueIn(t drift.Seconds, units string) (drift.VelocityRec, error) {
	v := w.Value(t)
	f, ok := speedToMPS[strings.ToLower(units)]
	if !ok {
		return drift.VelocityRec{}, fmt.Errorf("%w: %q", ErrInvalidUnits, units)
	}
	return v.Scale(1 / f), nil
}
