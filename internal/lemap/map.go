package lemap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/logging"
	"github.com/san-kum/driftsim/internal/observability"
	"github.com/san-kum/driftsim/internal/spill"
)

var (
	ErrDuplicateMover = errors.New("lemap: mover name already in use")
	ErrUnknownMover   = errors.New("lemap: no mover with that name")
	ErrInvalidStep    = errors.New("lemap: step must end after it starts")
	ErrOwned          = errors.New("lemap: mover is owned by another map")
)

// FailurePolicy decides what a failed PrepareForStep or UpdateUncertainty
// does to the rest of the step.
type FailurePolicy int

const (
	// AbortStep stops the step and returns the mover's error.
	AbortStep FailurePolicy = iota
	// SkipMover leaves the failing mover out of this step only.
	SkipMover
)

func (p FailurePolicy) String() string {
	switch p {
	case AbortStep:
		return "abort"
	case SkipMover:
		return "skip"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "abort":
		return AbortStep, nil
	case "skip":
		return SkipMover, nil
	}
	return AbortStep, fmt.Errorf("unknown failure policy: %s", s)
}

// Map owns an ordered list of movers.
type Map struct {
	mu     sync.RWMutex
	name   string
	movers []drift.Mover

	policy    FailurePolicy
	workers   int
	minChunk  int
	collector *observability.StepCollector
	scratch   positionPool
}

var _ drift.Map = (*Map)(nil)

type Option func(*Map)

func WithFailurePolicy(p FailurePolicy) Option {
	return func(m *Map) { m.policy = p }
}

// WithWorkers sets how many goroutines share the Move loop. Values below one
// run it inline.
func WithWorkers(n int) Option {
	return func(m *Map) { m.workers = n }
}

func WithCollector(c *observability.StepCollector) Option {
	return func(m *Map) { m.collector = c }
}

func New(name string, opts ...Option) *Map {
	m := &Map{
		name:     name,
		policy:   AbortStep,
		workers:  1,
		minChunk: 64,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Map) Name() string { return m.name }

// Add appends mv and makes this map its owner. Names are unique per map and
// a mover owned by another map must be removed from it first.
func (m *Map) Add(mv drift.Mover) error {
	if mv == nil {
		return errors.New("lemap: nil mover")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner := mv.Owner(); owner != nil && owner != drift.Map(m) {
		return fmt.Errorf("%w: %s belongs to %s", ErrOwned, mv.Name(), owner.Name())
	}
	for _, existing := range m.movers {
		if existing.Name() == mv.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateMover, mv.Name())
		}
	}
	mv.SetOwner(m)
	m.movers = append(m.movers, mv)
	return nil
}

// Remove detaches the named mover and clears its owner if that is still
// this map.
func (m *Map) Remove(name string) (drift.Mover, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, mv := range m.movers {
		if mv.Name() != name {
			continue
		}
		m.movers = append(m.movers[:i], m.movers[i+1:]...)
		if mv.Owner() == drift.Map(m) {
			mv.SetOwner(nil)
		}
		return mv, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMover, name)
}

// Movers returns a snapshot in insertion order.
func (m *Map) Movers() []drift.Mover {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]drift.Mover, len(m.movers))
	copy(out, m.movers)
	return out
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.movers)
}

func (m *Map) ByName(name string) (drift.Mover, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mv := range m.movers {
		if mv.Name() == name {
			return mv, true
		}
	}
	return nil, false
}

// OfKind returns the movers that answer true to IAm(id), so asking for
// TypeCurrentMover also yields constant movers.
func (m *Map) OfKind(id drift.ClassID) []drift.Mover {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []drift.Mover
	for _, mv := range m.movers {
		if drift.Is(mv, id) {
			out = append(out, mv)
		}
	}
	return out
}

// StepReport summarises one call to Step.
type StepReport struct {
	Set      string
	Start    drift.Seconds
	End      drift.Seconds
	Moved    int
	Skipped  []string
	Failures []error
	Duration time.Duration
}

// Step advances every in-water LE of set from start to end.
//
// With AbortStep a prepare or refresh failure ends the step before any LE
// moves; movers already prepared still get StepDone. With SkipMover the
// failing mover sits the step out and the failure is listed in the report.
// A mover whose owner is no longer this map fails prepare with
// drift.ErrNoOwner. Failures are logged to the logger carried by ctx.
func (m *Map) Step(ctx context.Context, set *spill.LESet, setIndex int, start, end drift.Seconds) (report StepReport, err error) {
	report = StepReport{Start: start, End: end}
	if set == nil {
		return report, errors.New("lemap: nil LE set")
	}
	report.Set = set.Name
	if end <= start {
		return report, fmt.Errorf("%w: [%d, %d]", ErrInvalidStep, start, end)
	}

	began := time.Now()
	defer func() {
		report.Duration = time.Since(began)
	}()

	movers := m.Movers()
	log := logging.FromContext(ctx).With(logging.String("map", m.name), logging.String("set", set.Name), logging.Int64("t", int64(start)))

	prepared := make([]drift.Mover, 0, len(movers))
	for _, mv := range movers {
		if err := m.prepare(mv, start, end, set.Uncertain); err != nil {
			err = drift.Wrap(mv, "prepare", err)
			m.recordFailure(ctx, log, mv, "prepare", err)
			if m.policy == AbortStep {
				m.finish(prepared)
				m.observe(set, "aborted", began)
				return report, err
			}
			report.Skipped = append(report.Skipped, mv.Name())
			report.Failures = append(report.Failures, err)
			continue
		}
		prepared = append(prepared, mv)
	}

	// Every prepared mover is owed exactly one StepDone, even when it is
	// skipped for a refresh failure.
	active := prepared
	if set.Uncertain {
		active = make([]drift.Mover, 0, len(prepared))
		for _, mv := range prepared {
			if err := mv.UpdateUncertainty(); err != nil {
				err = drift.Wrap(mv, "refresh", err)
				m.recordFailure(ctx, log, mv, "refresh", err)
				if m.policy == AbortStep {
					m.finish(prepared)
					m.observe(set, "aborted", began)
					return report, err
				}
				report.Skipped = append(report.Skipped, mv.Name())
				report.Failures = append(report.Failures, err)
				continue
			}
			active = append(active, mv)
		}
	}

	if err := ctx.Err(); err != nil {
		m.finish(prepared)
		m.observe(set, "canceled", began)
		return report, err
	}

	report.Moved = m.moveAll(active, set, setIndex, end-start)
	m.finish(prepared)
	m.observe(set, "ok", began)

	log.Debug(ctx, "step complete",
		logging.Int("movers", len(active)),
		logging.Int("moved", report.Moved),
		logging.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// prepare refuses movers whose owner was changed behind the map's back.
func (m *Map) prepare(mv drift.Mover, start, end drift.Seconds, uncertain bool) error {
	if mv.Owner() != drift.Map(m) {
		return drift.ErrNoOwner
	}
	return mv.PrepareForStep(start, end, start, uncertain)
}

func (m *Map) moveAll(movers []drift.Mover, set *spill.LESet, setIndex int, dt drift.Seconds) int {
	les := set.LEs
	next := m.scratch.get(len(les))
	defer m.scratch.put(next)

	leType := set.LEType()
	parallelFor(len(les), m.workers, m.minChunk, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			le := les[i]
			next[i] = le.P
			if le.Status != drift.InWater {
				continue
			}
			next[i] = combine(movers, dt, setIndex, i, le, leType)
		}
	})

	moved := 0
	for i := range les {
		if les[i].Status != drift.InWater {
			continue
		}
		les[i].P = next[i]
		moved++
	}
	return moved
}

// combine sums each mover's displacement from the common start point.
func combine(movers []drift.Mover, dt drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	p := le.P
	out := p
	for _, mv := range movers {
		q := mv.Move(dt, setIndex, leIndex, le, leType)
		out.Lat += q.Lat - p.Lat
		out.Long += q.Long - p.Long
		if mv.Is3D() || p.Z != 0 {
			out.Z += q.Z - p.Z
		}
	}
	if out.Z < 0 {
		out.Z = 0
	}
	return out
}

func (m *Map) finish(movers []drift.Mover) {
	for _, mv := range movers {
		mv.StepDone()
	}
}

func (m *Map) recordFailure(ctx context.Context, log logging.Logger, mv drift.Mover, op string, err error) {
	log.Warn(ctx, "mover failed",
		logging.String("mover", mv.Name()),
		logging.String("op", op),
		logging.String("policy", m.policy.String()),
		logging.Err(err),
	)
	if m.collector != nil {
		m.collector.MoverFailures.WithLabelValues(mv.Name(), op).Inc()
	}
}

func (m *Map) observe(set *spill.LESet, outcome string, began time.Time) {
	if m.collector == nil {
		return
	}
	m.collector.Steps.WithLabelValues(set.Name, outcome).Inc()
	m.collector.StepDuration.Observe(time.Since(began).Seconds())
	m.collector.ActiveLEs.WithLabelValues(set.Name).Set(float64(set.Active()))
}
