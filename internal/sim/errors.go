package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/driftsim/internal/drift"
)

var (
	ErrInvalidConfig = errors.New("sim: invalid config")

	// ErrInvalidPosition indicates an LE position became NaN or Inf.
	ErrInvalidPosition = errors.New("sim: invalid LE position (NaN or Inf detected)")

	ErrNoLESet = errors.New("sim: no LE set to advance")
)

// StepError wraps an error with the step it happened in.
type StepError struct {
	Step    int
	Time    drift.Seconds
	Set     string
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%d, set %s): %v", e.Step, e.Time, e.Set, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
