package drift

import "fmt"

type UncertaintyState int

const (
	// UncertaintyDisabled: no start time configured.
	UncertaintyDisabled UncertaintyState = iota
	// UncertaintyScheduled: t < start.
	UncertaintyScheduled
	// UncertaintyActive: start <= t < start+duration.
	UncertaintyActive
	// UncertaintyExpired: t >= start+duration.
	UncertaintyExpired
)

func (s UncertaintyState) String() string {
	switch s {
	case UncertaintyDisabled:
		return "disabled"
	case UncertaintyScheduled:
		return "scheduled"
	case UncertaintyActive:
		return "active"
	case UncertaintyExpired:
		return "expired"
	default:
		return fmt.Sprintf("UncertaintyState(%d)", int(s))
	}
}

// DefaultRefreshInterval is how long an uncertainty basis stays valid before
// UpdateUncertainty recomputes it.
const DefaultRefreshInterval Seconds = 3 * 3600

// Uncertainty is the timing state that gates perturbation for one mover.
type Uncertainty struct {
	start    Seconds
	duration Seconds
	armed    bool

	RefreshInterval Seconds
	lastRefresh     Seconds
	refreshed       bool
}

func NewUncertainty() Uncertainty {
	return Uncertainty{RefreshInterval: DefaultRefreshInterval}
}

// Arm sets the window [start, start+duration) and forgets the last refresh,
// so the next RefreshDue is true.
func (u *Uncertainty) Arm(start, duration Seconds) {
	u.start = start
	u.duration = duration
	u.armed = true
	u.refreshed = false
}

func (u *Uncertainty) Disarm() {
	u.armed = false
	u.refreshed = false
}

// Window returns the configured start and duration.
func (u Uncertainty) Window() (start, duration Seconds, ok bool) {
	return u.start, u.duration, u.armed
}

func (u Uncertainty) State(t Seconds) UncertaintyState {
	if !u.armed {
		return UncertaintyDisabled
	}
	if t < u.start {
		return UncertaintyScheduled
	}
	// t-start avoids overflowing start+duration near the int64 limits
	if t-u.start < u.duration {
		return UncertaintyActive
	}
	return UncertaintyExpired
}

func (u Uncertainty) Active(t Seconds) bool {
	return u.State(t) == UncertaintyActive
}

// RefreshDue reports whether a refresh at t should recompute the basis:
// never refreshed, interval elapsed, or time moved backwards (rewind).
func (u Uncertainty) RefreshDue(t Seconds) bool {
	if !u.refreshed {
		return true
	}
	if t < u.lastRefresh {
		return true
	}
	interval := u.RefreshInterval
	if interval <= 0 {
		return true
	}
	return t-u.lastRefresh >= interval
}

func (u *Uncertainty) MarkRefreshed(t Seconds) {
	u.lastRefresh = t
	u.refreshed = true
}

// LastRefresh returns the time of the last refresh, if any.
func (u Uncertainty) LastRefresh() (Seconds, bool) {
	return u.lastRefresh, u.refreshed
}
