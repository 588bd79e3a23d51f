package drift

import "fmt"

// ClassID tags a concrete mover kind.
type ClassID int

const (
	TypeUndefined ClassID = iota
	TypeMover
	TypeCurrentMover
	TypeConstantMover
	TypeWindMover
	TypeRandomMover
	TypeRandomVerticalMover
)

var classNames = map[ClassID]string{
	TypeUndefined:           "undefined",
	TypeMover:               "mover",
	TypeCurrentMover:        "current_mover",
	TypeConstantMover:       "constant_mover",
	TypeWindMover:           "wind_mover",
	TypeRandomMover:         "random_mover",
	TypeRandomVerticalMover: "random_vertical_mover",
}

func (id ClassID) String() string {
	if name, ok := classNames[id]; ok {
		return name
	}
	return fmt.Sprintf("ClassID(%d)", int(id))
}

// ParseClassID is the inverse of String.
func ParseClassID(s string) (ClassID, error) {
	for id, name := range classNames {
		if name == s {
			return id, nil
		}
	}
	return TypeUndefined, fmt.Errorf("unknown class id: %s", s)
}

// Identifier answers type-identity queries. IAm must return true for the
// implementer's own ClassID and otherwise delegate to the IAm of the kind it
// embeds.
type Identifier interface {
	ClassID() ClassID
	IAm(id ClassID) bool
}

// Is reports whether x is of kind id or a descendant of it.
func Is(x Identifier, id ClassID) bool {
	if x == nil {
		return false
	}
	return x.IAm(id)
}
