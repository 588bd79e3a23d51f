package drift

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneric is an unspecified internal failure of a mover.
	ErrGeneric = errors.New("drift: mover failure")

	// ErrMissingData indicates a mover lacks the data it needs (velocity field,
	// uncertainty basis) to answer.
	ErrMissingData = fmt.Errorf("%w: missing data", ErrGeneric)

	ErrNoOwner = errors.New("drift: mover has no owning map")
)

// MoverError wraps a failure with the mover and operation that produced it.
type MoverError struct {
	Mover   string
	Op      string
	Wrapped error
}

func (e *MoverError) Error() string {
	return fmt.Sprintf("mover %q: %s: %v", e.Mover, e.Op, e.Wrapped)
}

func (e *MoverError) Unwrap() error {
	return e.Wrapped
}

// Wrap attaches mover context to err. It returns nil for a nil err.
func Wrap(m Mover, op string, err error) error {
	if err == nil {
		return nil
	}
	name := ""
	if m != nil {
		name = m.Name()
	}
	return &MoverError{Mover: name, Op: op, Wrapped: err}
}
