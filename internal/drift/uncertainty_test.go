package drift

import "testing"

func TestUncertaintyStates(t *testing.T) {
	const (
		start    Seconds = 1000
		duration Seconds = 600
	)
	u := NewUncertainty()

	if got := u.State(start); got != UncertaintyDisabled {
		t.Fatalf("unarmed State = %v, want disabled", got)
	}

	u.Arm(start, duration)

	tests := []struct {
		name string
		t    Seconds
		want UncertaintyState
	}{
		{"before start", start - 1, UncertaintyScheduled},
		{"at start", start, UncertaintyActive},
		{"inside", start + duration/2, UncertaintyActive},
		{"last second", start + duration - 1, UncertaintyActive},
		{"at end", start + duration, UncertaintyExpired},
		{"after end", start + 10*duration, UncertaintyExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := u.State(tt.t); got != tt.want {
				t.Errorf("State(%d) = %v, want %v", tt.t, got, tt.want)
			}
			if u.Active(tt.t) != (tt.want == UncertaintyActive) {
				t.Errorf("Active(%d) disagrees with State", tt.t)
			}
		})
	}

	u.Disarm()
	if u.State(start) != UncertaintyDisabled {
		t.Error("Disarm should disable uncertainty")
	}
}

func TestUncertaintyRearm(t *testing.T) {
	u := NewUncertainty()
	u.Arm(0, 100)
	if u.State(200) != UncertaintyExpired {
		t.Fatal("expected expired")
	}
	u.Arm(150, 100)
	if u.State(200) != UncertaintyActive {
		t.Error("re-armed window should be active")
	}
}

func TestUncertaintyZeroDuration(t *testing.T) {
	u := NewUncertainty()
	u.Arm(10, 0)
	if u.Active(10) {
		t.Error("empty window must never be active")
	}
	if u.State(10) != UncertaintyExpired {
		t.Errorf("State = %v, want expired", u.State(10))
	}
}

func TestUncertaintyRefreshThrottle(t *testing.T) {
	u := NewUncertainty()
	u.RefreshInterval = 3600

	if !u.RefreshDue(0) {
		t.Fatal("first refresh should be due")
	}
	u.MarkRefreshed(0)

	if u.RefreshDue(1800) {
		t.Error("refresh inside interval should be throttled")
	}
	if !u.RefreshDue(3600) {
		t.Error("refresh at interval boundary should be due")
	}
	if !u.RefreshDue(-60) {
		t.Error("rewind should force a refresh")
	}

	last, ok := u.LastRefresh()
	if !ok || last != 0 {
		t.Errorf("LastRefresh = %d, %v", last, ok)
	}

	u.Arm(0, 100)
	if !u.RefreshDue(1) {
		t.Error("re-arming should force the next refresh")
	}
}

func TestBaseUncertaintyFollowsModelTime(t *testing.T) {
	b := NewBase(nil, "u")
	b.SetUncertainty(100, 50)

	cases := []struct {
		t    Seconds
		want UncertaintyState
	}{
		{99, UncertaintyScheduled},
		{100, UncertaintyActive},
		{149, UncertaintyActive},
		{150, UncertaintyExpired},
	}
	for _, c := range cases {
		if err := b.PrepareForStep(c.t, c.t+60, c.t, true); err != nil {
			t.Fatalf("PrepareForStep: %v", err)
		}
		if got := b.UncertaintyState(); got != c.want {
			t.Errorf("t=%d: state %v, want %v", c.t, got, c.want)
		}
	}
	if !b.UncertainRun() {
		t.Error("uncertain flag not recorded")
	}

	b.ClearUncertainty()
	if b.UncertaintyActive() {
		t.Error("cleared uncertainty should not be active")
	}
}

func TestBaseUpdateUncertaintyAdvancesTimestamp(t *testing.T) {
	b := NewBase(nil, "u")
	b.SetRefreshInterval(600)
	b.SetModelTime(1200)

	if err := b.UpdateUncertainty(); err != nil {
		t.Fatal(err)
	}
	last, ok := b.Uncertainty().LastRefresh()
	if !ok || last != 1200 {
		t.Fatalf("LastRefresh = %d, %v; want 1200", last, ok)
	}

	b.SetModelTime(1500)
	_ = b.UpdateUncertainty()
	if last, _ := b.Uncertainty().LastRefresh(); last != 1200 {
		t.Errorf("throttled refresh moved timestamp to %d", last)
	}

	b.SetModelTime(1800)
	_ = b.UpdateUncertainty()
	if last, _ := b.Uncertainty().LastRefresh(); last != 1800 {
		t.Errorf("due refresh left timestamp at %d", last)
	}
}
