package sim

import (
	"fmt"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/lemap"
	"github.com/san-kum/driftsim/internal/spill"
)

// Metric accumulates a scalar over a run from the forecast LE set.
type Metric interface {
	Name() string
	Observe(set *spill.LESet, t drift.Seconds)
	Value() float64
	Reset()
}

// Observer is told about every completed step. uncertain is nil for
// forecast-only runs.
type Observer interface {
	OnStep(step int, t drift.Seconds, forecast, uncertain *spill.LESet)
}

type ObserverFunc func(step int, t drift.Seconds, forecast, uncertain *spill.LESet)

func (f ObserverFunc) OnStep(step int, t drift.Seconds, forecast, uncertain *spill.LESet) {
	f(step, t, forecast, uncertain)
}

type Config struct {
	StartTime drift.Seconds
	TimeStep  drift.Seconds
	Duration  drift.Seconds
	Seed      int64
	// Uncertain also advances an uncertainty twin of the forecast set.
	Uncertain bool
	// Workers bounds concurrent runs in an Ensemble.
	Workers int
	// ValidatePositions stops the run at the first NaN or Inf position.
	ValidatePositions bool
}

func DefaultConfig() Config {
	return Config{
		TimeStep:          900,
		Duration:          86400,
		Workers:           1,
		ValidatePositions: true,
	}
}

func (c Config) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("%w: time step must be positive, got %d", ErrInvalidConfig, c.TimeStep)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidConfig, c.Duration)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Steps is the number of steps needed to cover Duration; the last one may be
// shorter than TimeStep.
func (c Config) Steps() int {
	return int((c.Duration + c.TimeStep - 1) / c.TimeStep)
}

func (c Config) EndTime() drift.Seconds {
	return c.StartTime + c.Duration
}

type Result struct {
	Times     []drift.Seconds
	Forecast  [][]drift.WorldPoint3D
	Uncertain [][]drift.WorldPoint3D

	// Final and FinalTwin hold the LE sets as they stood when the run ended.
	Final     *spill.LESet
	FinalTwin *spill.LESet

	Metrics    map[string]float64
	Reports    []lemap.StepReport
	StepsTaken int
	// Skipped counts mover skips summed over all steps.
	Skipped int
}

// Snapshot returns the forecast positions recorded at step i.
func (r *Result) Snapshot(i int) []drift.WorldPoint3D {
	if i < 0 || i >= len(r.Forecast) {
		return nil
	}
	return r.Forecast[i]
}
