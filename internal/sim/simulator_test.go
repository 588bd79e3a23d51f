package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/lemap"
	"github.com/san-kum/driftsim/internal/movers"
	"github.com/san-kum/driftsim/internal/spill"
)

var origin = drift.WorldPoint3D{Lat: 28, Long: -89}

func newForecast(t *testing.T, n int, releaseEnd drift.Seconds) *spill.LESet {
	t.Helper()
	set, err := spill.New("forecast", spill.PointSource{
		Position:   origin,
		NumLEs:     n,
		ReleaseEnd: releaseEnd,
	}, 1)
	if err != nil {
		t.Fatalf("spill.New: %v", err)
	}
	return set
}

func newCurrentSim(t *testing.T, n int, v drift.VelocityRec) *Simulator {
	t.Helper()
	m := lemap.New("gulf")
	if err := m.Add(movers.NewConstant(nil, "current", v, 1)); err != nil {
		t.Fatal(err)
	}
	return New(m, newForecast(t, n, 0))
}

func TestSimulatorRun(t *testing.T) {
	sim := newCurrentSim(t, 10, drift.VelocityRec{U: 1})

	cfg := Config{TimeStep: 900, Duration: 3600}
	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 4 {
		t.Errorf("expected 4 steps, got %d", result.StepsTaken)
	}
	if len(result.Times) != 5 || len(result.Forecast) != 5 {
		t.Fatalf("expected 5 snapshots, got %d times and %d frames", len(result.Times), len(result.Forecast))
	}
	if result.Times[4] != 3600 {
		t.Errorf("final time = %d, want 3600", result.Times[4])
	}
	if result.Uncertain != nil {
		t.Error("forecast-only run recorded uncertainty frames")
	}

	for i, p := range result.Snapshot(4) {
		dx, dy, _ := origin.Delta(p)
		if math.Abs(dx-3600) > 1e-3 || math.Abs(dy) > 1e-6 {
			t.Errorf("le %d displaced (%.3f, %.3f), want (3600, 0)", i, dx, dy)
		}
	}
}

func TestSimulatorShortLastStep(t *testing.T) {
	sim := newCurrentSim(t, 1, drift.VelocityRec{V: 2})

	result, err := sim.Run(context.Background(), Config{StartTime: 100, TimeStep: 900, Duration: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Times[len(result.Times)-1]; got != 1100 {
		t.Errorf("last time = %d, want 1100", got)
	}
	_, dy, _ := origin.Delta(result.Final.LEs[0].P)
	if math.Abs(dy-2000) > 1e-3 {
		t.Errorf("northward drift = %.3f, want 2000", dy)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := newCurrentSim(t, 1, drift.VelocityRec{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero step", Config{TimeStep: 0, Duration: 3600}},
		{"negative step", Config{TimeStep: -60, Duration: 3600}},
		{"zero duration", Config{TimeStep: 60, Duration: 0}},
		{"negative workers", Config{TimeStep: 60, Duration: 60, Workers: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := New(nil, nil).Run(context.Background(), DefaultConfig()); !errors.Is(err, ErrNoLESet) {
		t.Errorf("expected ErrNoLESet, got %v", err)
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (m *testMetric) Name() string { return "test" }
func (m *testMetric) Observe(set *spill.LESet, t drift.Seconds) {
	m.count++
	m.sum += float64(set.Active())
}
func (m *testMetric) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
func (m *testMetric) Reset() {
	m.count = 0
	m.sum = 0
}

func TestSimulatorMetricsAndObservers(t *testing.T) {
	m := lemap.New("gulf")
	if err := m.Add(movers.NewConstant(nil, "current", drift.VelocityRec{U: 0.1}, 1)); err != nil {
		t.Fatal(err)
	}
	// four LEs released at 0, 1200, 2400, 3600
	sim := New(m, newForecast(t, 4, 3600))

	metric := &testMetric{}
	sim.AddMetric(metric)

	var seen []drift.Seconds
	sim.AddObserver(ObserverFunc(func(step int, t drift.Seconds, forecast, uncertain *spill.LESet) {
		seen = append(seen, t)
	}))

	result, err := sim.Run(context.Background(), Config{TimeStep: 1200, Duration: 3600})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 4 {
		t.Errorf("expected 4 observations, got %d", metric.count)
	}
	if len(seen) != 3 || seen[2] != 3600 {
		t.Errorf("observer saw %v", seen)
	}
	if result.Final.Active() != 4 {
		t.Errorf("in water at end = %d, want 4", result.Final.Active())
	}
	// the last LE is released at the end and has not moved
	if result.Final.LEs[3].P != origin {
		t.Errorf("late LE moved to %v", result.Final.LEs[3].P)
	}
}

func TestSimulatorUncertainTwin(t *testing.T) {
	m := lemap.New("gulf")
	r := movers.NewRandom(nil, "diffusion", movers.DefaultDiffusion, 7)
	r.SetUncertainty(0, 3600)
	r.UncertaintyFactor = 4
	if err := m.Add(r); err != nil {
		t.Fatal(err)
	}
	sim := New(m, newForecast(t, 50, 0))

	result, err := sim.Run(context.Background(), Config{TimeStep: 900, Duration: 3600, Uncertain: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.FinalTwin == nil || !result.FinalTwin.Uncertain {
		t.Fatal("uncertain run did not keep an uncertainty twin")
	}
	if len(result.Uncertain) != len(result.Forecast) {
		t.Fatalf("frames: %d uncertain, %d forecast", len(result.Uncertain), len(result.Forecast))
	}
	if len(result.Reports) != 8 {
		t.Errorf("expected a report per set per step, got %d", len(result.Reports))
	}

	spread := func(set *spill.LESet) float64 {
		var sum float64
		for _, le := range set.LEs {
			dx, dy, _ := origin.Delta(le.P)
			sum += dx*dx + dy*dy
		}
		return sum / float64(set.Len())
	}
	if spread(result.FinalTwin) <= spread(result.Final) {
		t.Errorf("uncertainty twin spread %.1f not above forecast %.1f",
			spread(result.FinalTwin), spread(result.Final))
	}
}

type nanMover struct{ *drift.Base }

func (n *nanMover) Move(dt drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	p := le.P
	p.Lat = math.NaN()
	return p
}

func TestSimulatorInvalidPosition(t *testing.T) {
	m := lemap.New("gulf")
	if err := m.Add(&nanMover{drift.NewBase(nil, "nan")}); err != nil {
		t.Fatal(err)
	}
	sim := New(m, newForecast(t, 2, 0))

	cfg := DefaultConfig()
	result, err := sim.Run(context.Background(), cfg)
	if !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
	var se *StepError
	if !errors.As(err, &se) || se.Step != 0 || se.Set != "forecast" {
		t.Errorf("unexpected step error %+v", se)
	}
	if result == nil || result.StepsTaken != 0 {
		t.Error("expected a partial result with no completed steps")
	}
}

func TestSimulatorMoverFailure(t *testing.T) {
	m := lemap.New("gulf")
	if err := m.Add(movers.NewWind(nil, "wind", nil, 1)); err != nil {
		t.Fatal(err)
	}
	sim := New(m, newForecast(t, 1, 0))

	_, err := sim.Run(context.Background(), DefaultConfig())
	if !errors.Is(err, drift.ErrMissingData) {
		t.Fatalf("expected missing data failure, got %v", err)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := newCurrentSim(t, 1, drift.VelocityRec{U: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 || len(result.Times) != 1 {
		t.Errorf("canceled run advanced: %d steps", result.StepsTaken)
	}
}
