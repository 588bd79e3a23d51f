package integrators

import (
	"testing"

	"github.com/san-kum/driftsim/internal/drift"
)

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	f := uniform(0.3, 0.1)
	p := drift.WorldPoint3D{Lat: 40, Long: -70}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p = integrator.Step(f, p, 0, 60)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	f := ramp(1e-4)
	p := drift.WorldPoint3D{Lat: 40, Long: -70}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p = integrator.Step(f, p, float64(i)*60, 60)
	}
}
