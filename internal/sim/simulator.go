package sim

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/lemap"
	"github.com/san-kum/driftsim/internal/logging"
	"github.com/san-kum/driftsim/internal/observability"
	"github.com/san-kum/driftsim/internal/spill"
)

// Simulator advances a forecast LE set, and optionally its uncertainty twin,
// through a Map one step at a time.
type Simulator struct {
	m         *lemap.Map
	forecast  *spill.LESet
	metrics   []Metric
	observers []Observer
	log       logging.Logger
	tracer    trace.Tracer
}

func New(m *lemap.Map, forecast *spill.LESet) *Simulator {
	return &Simulator{
		m:         m,
		forecast:  forecast,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       logging.Noop(),
		tracer:    observability.Tracer(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l logging.Logger) {
	if l != nil {
		s.log = l
	}
}

func (s *Simulator) Map() *lemap.Map { return s.m }

// Run steps from cfg.StartTime to cfg.EndTime. The forecast set passed to New
// is advanced in place; the uncertainty twin is cloned from it at the start.
// On cancellation the partial result is returned with the context error.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.m == nil || s.forecast == nil {
		return nil, ErrNoLESet
	}

	ctx, span := s.tracer.Start(ctx, "sim.Run", trace.WithAttributes(
		attribute.String("map", s.m.Name()),
		attribute.Int64("start", int64(cfg.StartTime)),
		attribute.Int64("duration", int64(cfg.Duration)),
		attribute.Bool("uncertain", cfg.Uncertain),
	))
	defer span.End()

	steps := cfg.Steps()
	result := &Result{
		Times:    make([]drift.Seconds, 0, steps+1),
		Forecast: make([][]drift.WorldPoint3D, 0, steps+1),
		Metrics:  make(map[string]float64),
		Reports:  make([]lemap.StepReport, 0, steps*2),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	forecast := s.forecast
	forecast.Release(cfg.StartTime)

	var twin *spill.LESet
	if cfg.Uncertain {
		twin = forecast.Clone(forecast.Name+"-uncertain", true)
		result.Uncertain = make([][]drift.WorldPoint3D, 0, steps+1)
	}

	record := func(t drift.Seconds) {
		result.Times = append(result.Times, t)
		result.Forecast = append(result.Forecast, forecast.Positions())
		if twin != nil {
			result.Uncertain = append(result.Uncertain, twin.Positions())
		}
	}
	record(cfg.StartTime)

	ctx = logging.ContextWithLogger(ctx, s.log)
	log := s.log.With(logging.String("map", s.m.Name()))
	log.Info(ctx, "run started",
		logging.Int("steps", steps),
		logging.Int("les", forecast.Len()),
		logging.Any("uncertain", cfg.Uncertain),
	)

	finish := func() {
		result.Final = forecast
		result.FinalTwin = twin
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}

	t := cfg.StartTime
	end := cfg.EndTime()
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			finish()
			span.SetStatus(codes.Error, "canceled")
			return result, ctx.Err()
		default:
		}

		next := min(t+cfg.TimeStep, end)

		for _, m := range s.metrics {
			m.Observe(forecast, t)
		}

		if err := s.step(ctx, result, i, forecast, 0, t, next, cfg.ValidatePositions); err != nil {
			finish()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		if twin != nil {
			if err := s.step(ctx, result, i, twin, 1, t, next, cfg.ValidatePositions); err != nil {
				finish()
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return result, err
			}
		}

		t = next
		result.StepsTaken++

		// LEs whose release falls inside the step enter the water at its end.
		forecast.Release(t)
		if twin != nil {
			twin.Release(t)
		}
		record(t)

		for _, obs := range s.observers {
			obs.OnStep(i, t, forecast, twin)
		}
	}

	for _, m := range s.metrics {
		m.Observe(forecast, t)
	}
	finish()

	log.Info(ctx, "run finished",
		logging.Int("steps", result.StepsTaken),
		logging.Int("in_water", forecast.Active()),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Simulator) step(ctx context.Context, result *Result, i int, set *spill.LESet, setIndex int, start, end drift.Seconds, validate bool) error {
	ctx, span := s.tracer.Start(ctx, "sim.Step", trace.WithAttributes(
		attribute.Int("step", i),
		attribute.String("set", set.Name),
	))
	defer span.End()

	report, err := s.m.Step(ctx, set, setIndex, start, end)
	result.Reports = append(result.Reports, report)
	result.Skipped += len(report.Skipped)
	if err != nil {
		span.RecordError(err)
		return &StepError{Step: i, Time: start, Set: set.Name, Wrapped: err}
	}
	span.SetAttributes(attribute.Int("moved", report.Moved))

	if validate {
		for _, le := range set.LEs {
			if !validPoint(le.P) {
				return &StepError{
					Step:    i,
					Time:    start,
					Set:     set.Name,
					Wrapped: fmt.Errorf("%w: le %d at %v", ErrInvalidPosition, le.ID, le.P),
				}
			}
		}
	}
	return nil
}

func validPoint(p drift.WorldPoint3D) bool {
	for _, v := range [...]float64{p.Lat, p.Long, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
