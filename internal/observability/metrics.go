// Package observability exposes Prometheus metrics and tracing for runs.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StepCollector bundles the metrics recorded by the step driver.
type StepCollector struct {
	gatherer prometheus.Gatherer

	Steps         *prometheus.CounterVec
	MoverFailures *prometheus.CounterVec
	StepDuration  prometheus.Histogram
	ActiveLEs     *prometheus.GaugeVec
}

// NewStepCollector registers the step metrics against reg, defaulting to the
// global registry when nil. Registering twice returns the existing metrics.
func NewStepCollector(reg prometheus.Registerer) (*StepCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "driftsim_steps_total",
		Help: "Model steps completed, labeled by LE set and outcome.",
	}, []string{"set", "outcome"}), "driftsim_steps_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "driftsim_mover_failures_total",
		Help: "Mover failures reported to the map, labeled by mover and operation.",
	}, []string{"mover", "op"}), "driftsim_mover_failures_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "driftsim_step_duration_seconds",
		Help:    "Wall-clock time spent in one map step.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "driftsim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	active, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "driftsim_active_les",
		Help: "LEs in the water after the last step, labeled by LE set.",
	}, []string{"set"}), "driftsim_active_les")
	if err != nil {
		return nil, err
	}

	return &StepCollector{
		gatherer:      gatherer,
		Steps:         steps,
		MoverFailures: failures,
		StepDuration:  duration,
		ActiveLEs:     active,
	}, nil
}

// Gatherer returns the gatherer matching the registerer the collector used.
func (c *StepCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *StepCollector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
