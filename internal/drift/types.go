package drift

import (
	"fmt"
	"math"
)

// Seconds is simulation time in seconds since a fixed epoch.
type Seconds int64

// MetersPerDegreeLat is the length of one degree of latitude.
const MetersPerDegreeLat = 111120.0

type WorldPoint3D struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
	// Z is depth in metres, positive down.
	Z float64 `json:"z"`
}

func (p WorldPoint3D) String() string {
	return fmt.Sprintf("(%.6f, %.6f, %.2f)", p.Lat, p.Long, p.Z)
}

// Offset moves p by dx metres east, dy metres north and dz metres down.
func (p WorldPoint3D) Offset(dx, dy, dz float64) WorldPoint3D {
	scale := math.Cos(p.Lat * math.Pi / 180)
	if math.Abs(scale) < 1e-9 {
		scale = 1e-9
	}
	return WorldPoint3D{
		Lat:  p.Lat + dy/MetersPerDegreeLat,
		Long: p.Long + dx/(MetersPerDegreeLat*scale),
		Z:    p.Z + dz,
	}
}

// Delta returns the (east, north, down) metres from p to q, measured at p.
func (p WorldPoint3D) Delta(q WorldPoint3D) (dx, dy, dz float64) {
	scale := math.Cos(p.Lat * math.Pi / 180)
	dx = (q.Long - p.Long) * MetersPerDegreeLat * scale
	dy = (q.Lat - p.Lat) * MetersPerDegreeLat
	dz = q.Z - p.Z
	return
}

// VelocityRec is an (eastward, northward) velocity in m/s.
type VelocityRec struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

func (v VelocityRec) Speed() float64 {
	return math.Hypot(v.U, v.V)
}

func (v VelocityRec) Scale(f float64) VelocityRec {
	return VelocityRec{U: v.U * f, V: v.V * f}
}

func (v VelocityRec) Add(o VelocityRec) VelocityRec {
	return VelocityRec{U: v.U + o.U, V: v.V + o.V}
}

type LEType int

const (
	ForecastLE LEType = iota
	UncertaintyLE
)

func (t LEType) String() string {
	switch t {
	case ForecastLE:
		return "forecast"
	case UncertaintyLE:
		return "uncertainty"
	default:
		return fmt.Sprintf("LEType(%d)", int(t))
	}
}

type LEStatus int

const (
	NotReleased LEStatus = iota
	InWater
	OnLand
	OffMap
	Evaporated
)

func (s LEStatus) String() string {
	switch s {
	case NotReleased:
		return "not_released"
	case InWater:
		return "in_water"
	case OnLand:
		return "on_land"
	case OffMap:
		return "off_map"
	case Evaporated:
		return "evaporated"
	default:
		return fmt.Sprintf("LEStatus(%d)", int(s))
	}
}

// LERec is one particle. Movers receive it by value and report a new
// position instead of mutating it.
type LERec struct {
	ID          int
	P           WorldPoint3D
	ReleaseTime Seconds
	Status      LEStatus
	// Windage is the fraction of wind speed transferred to the LE.
	Windage float64
}

// Color is a display hint for renderers.
type Color struct {
	R, G, B uint16
}

// Map is the container that owns a set of movers. A mover keeps a plain
// reference to it and never calls into it.
type Map interface {
	Name() string
}
