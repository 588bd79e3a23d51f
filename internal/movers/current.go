package movers

import (
	"fmt"
	"math"

	"github.com/san-kum/driftsim/internal/drift"
)

// Current is the common part of current movers: along/cross-stream
// uncertainty applied to a sampled current velocity.
type Current struct {
	*drift.Base

	// AlongUncertainty and CrossUncertainty are one-sigma fractions of the
	// current speed.
	AlongUncertainty float64
	CrossUncertainty float64

	basis *basis
}

func NewCurrent(owner drift.Map, name string, seed int64) *Current {
	return &Current{
		Base:             drift.NewBase(owner, name),
		AlongUncertainty: 0.5,
		CrossUncertainty: 0.25,
		basis:            newBasis(seed),
	}
}

func (c *Current) ClassID() drift.ClassID { return drift.TypeCurrentMover }

func (c *Current) IAm(id drift.ClassID) bool {
	if id == drift.TypeCurrentMover {
		return true
	}
	return c.Base.IAm(id)
}

func (c *Current) AddUncertainty(setIndex, leIndex int, v *drift.VelocityRec) error {
	if !c.UncertaintyActive() {
		return nil
	}
	if v == nil {
		return drift.ErrMissingData
	}
	speed := v.Speed()
	if speed == 0 {
		return nil
	}

	var r [2]float64
	c.basis.draw(setIndex, leIndex, r[:])

	au, av := v.U/speed, v.V/speed
	along := c.AlongUncertainty * r[0] * speed
	cross := c.CrossUncertainty * r[1] * speed
	v.U += au*along - av*cross
	v.V += av*along + au*cross
	return nil
}

func (c *Current) UpdateUncertainty() error {
	if !c.RefreshDue() {
		return nil
	}
	c.basis.refresh()
	c.MarkRefreshed()
	return nil
}

func describeVelocity(label string, v drift.VelocityRec) string {
	dir := math.Mod(math.Atan2(v.U, v.V)*180/math.Pi+360, 360)
	return fmt.Sprintf("%s: %.3f m/s toward %.0f deg", label, v.Speed(), dir)
}
