package drift

import "sync"

// Mover contributes displacement and, optionally, velocity perturbation to
// LEs for one model step.
type Mover interface {
	Identifier

	Name() string
	SetName(name string)
	Owner() Map
	SetOwner(m Map)
	Color() Color
	SetColor(c Color)

	// PrepareForStep runs once per step before any Move. Concrete movers
	// stage data covering [windowStart, windowEnd] here.
	PrepareForStep(windowStart, windowEnd, modelTime Seconds, uncertain bool) error

	// Move returns the LE position after this mover's contribution for one
	// step of timeStep seconds. It must not depend on the order other
	// movers are called in.
	Move(timeStep Seconds, setIndex, leIndex int, le LERec, leType LEType) WorldPoint3D

	// AddUncertainty perturbs v in place while the uncertainty window is
	// active and is a successful no-op otherwise.
	AddUncertainty(setIndex, leIndex int, v *VelocityRec) error

	// UpdateUncertainty recomputes the randomisation basis when the refresh
	// interval has elapsed.
	UpdateUncertainty() error

	VelocityAtPoint(p WorldPoint3D) (string, bool)
	ArrowDepth() float64
	Points() []WorldPoint3D
	Is3D() bool

	// StepDone runs once per step after the last Move.
	StepDone()
}

// Base carries the state common to all movers and the default behaviour:
// identity Move, successful no-op hooks. Concrete movers embed *Base and
// override what they change.
type Base struct {
	mu        sync.RWMutex
	owner     Map
	name      string
	color     Color
	unc       Uncertainty
	modelTime Seconds
	uncertain bool
}

var _ Mover = (*Base)(nil)

func NewBase(owner Map, name string) *Base {
	return &Base{
		owner: owner,
		name:  name,
		unc:   NewUncertainty(),
	}
}

func (b *Base) ClassID() ClassID { return TypeMover }

func (b *Base) IAm(id ClassID) bool { return id == TypeMover }

func (b *Base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

func (b *Base) SetName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

func (b *Base) Owner() Map {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.owner
}

func (b *Base) SetOwner(m Map) {
	b.mu.Lock()
	b.owner = m
	b.mu.Unlock()
}

func (b *Base) Color() Color {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.color
}

func (b *Base) SetColor(c Color) {
	b.mu.Lock()
	b.color = c
	b.mu.Unlock()
}

func (b *Base) PrepareForStep(windowStart, windowEnd, modelTime Seconds, uncertain bool) error {
	b.mu.Lock()
	b.modelTime = modelTime
	b.uncertain = uncertain
	b.mu.Unlock()
	return nil
}

func (b *Base) Move(timeStep Seconds, setIndex, leIndex int, le LERec, leType LEType) WorldPoint3D {
	return le.P
}

func (b *Base) AddUncertainty(setIndex, leIndex int, v *VelocityRec) error {
	return nil
}

func (b *Base) UpdateUncertainty() error {
	if b.RefreshDue() {
		b.MarkRefreshed()
	}
	return nil
}

func (b *Base) VelocityAtPoint(p WorldPoint3D) (string, bool) { return "", false }
func (b *Base) ArrowDepth() float64                           { return 0 }
func (b *Base) Points() []WorldPoint3D                        { return nil }
func (b *Base) Is3D() bool                                    { return false }
func (b *Base) StepDone()                                     {}

// SetUncertainty arms the perturbation window [start, start+duration).
func (b *Base) SetUncertainty(start, duration Seconds) {
	b.mu.Lock()
	b.unc.Arm(start, duration)
	b.mu.Unlock()
}

func (b *Base) ClearUncertainty() {
	b.mu.Lock()
	b.unc.Disarm()
	b.mu.Unlock()
}

func (b *Base) SetRefreshInterval(d Seconds) {
	b.mu.Lock()
	b.unc.RefreshInterval = d
	b.mu.Unlock()
}

// Uncertainty returns a snapshot of the timing state.
func (b *Base) Uncertainty() Uncertainty {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unc
}

// ModelTime is the model time passed to the last PrepareForStep.
func (b *Base) ModelTime() Seconds {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modelTime
}

// SetModelTime moves the mover's clock without a full PrepareForStep.
func (b *Base) SetModelTime(t Seconds) {
	b.mu.Lock()
	b.modelTime = t
	b.mu.Unlock()
}

// UncertainRun reports the uncertain flag of the last PrepareForStep.
func (b *Base) UncertainRun() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.uncertain
}

func (b *Base) UncertaintyState() UncertaintyState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unc.State(b.modelTime)
}

func (b *Base) UncertaintyActive() bool {
	return b.UncertaintyState() == UncertaintyActive
}

func (b *Base) RefreshDue() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unc.RefreshDue(b.modelTime)
}

func (b *Base) MarkRefreshed() {
	b.mu.Lock()
	b.unc.MarkRefreshed(b.modelTime)
	b.mu.Unlock()
}
