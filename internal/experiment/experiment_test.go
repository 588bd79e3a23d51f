package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/environment"
	"github.com/san-kum/driftsim/internal/movers"
)

func TestRegistryLists(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"constant", "mover", "random", "random_vertical", "wind"}, r.ListMovers())
	assert.Equal(t, []string{"euler", "rk4"}, r.ListIntegrators())
	assert.Len(t, r.DefaultMetrics(), 5)

	_, err := r.GetIntegrator("verlet")
	assert.EqualError(t, err, "unknown integrator: verlet")
	_, err = r.GetMover(config.MoverConfig{Kind: "tide", Name: "t"}, Env{})
	assert.EqualError(t, err, "unknown mover kind: tide")
}

func TestGetMoverKinds(t *testing.T) {
	r := NewRegistry()
	env := Env{Origin: drift.WorldPoint3D{Lat: 41, Long: -67}, Seed: 3}

	tests := []struct {
		mc   config.MoverConfig
		want drift.ClassID
	}{
		{config.MoverConfig{Kind: "mover", Name: "wind1"}, drift.TypeMover},
		{config.MoverConfig{Kind: "constant", Name: "c", U: 1}, drift.TypeConstantMover},
		{config.MoverConfig{Kind: "random", Name: "r"}, drift.TypeRandomMover},
		{config.MoverConfig{Kind: "random_vertical", Name: "rv", MixedLayerDepth: 30}, drift.TypeRandomVerticalMover},
		{config.MoverConfig{Kind: "wind", Name: "w", Wind: &config.WindConfig{
			Series: []environment.WindValue{{Speed: 5, Direction: 90}},
		}}, drift.TypeWindMover},
	}
	for _, tt := range tests {
		t.Run(tt.mc.Kind, func(t *testing.T) {
			m, err := r.GetMover(tt.mc, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.ClassID())
			assert.Equal(t, tt.mc.Name, m.Name())
			assert.True(t, m.IAm(drift.TypeMover))
		})
	}
}

func TestGetMoverOptions(t *testing.T) {
	r := NewRegistry()
	env := Env{Origin: drift.WorldPoint3D{Lat: 41, Long: -67}, Seed: 3}

	m, err := r.GetMover(config.MoverConfig{
		Kind: "wind", Name: "w", Integrator: "euler",
		Wind: &config.WindConfig{Units: "knots", Series: []environment.WindValue{{Speed: 10}}},
		Uncertainty: &config.UncertaintyConfig{
			Start: 100, Duration: 600, RefreshInterval: 300, Factor: 2,
		},
	}, env)
	require.NoError(t, err)

	w := m.(*movers.Wind)
	assert.Equal(t, env.Origin, w.Points()[0])
	assert.Equal(t, "knots", w.Record().Units())
	assert.InDelta(t, 2*movers.DefaultSpeedScale, w.SpeedScale, 1e-12)

	u := w.Uncertainty()
	start, duration, armed := u.Window()
	assert.True(t, armed)
	assert.Equal(t, drift.Seconds(100), start)
	assert.Equal(t, drift.Seconds(600), duration)
	assert.Equal(t, drift.Seconds(300), u.RefreshInterval)

	rv, err := r.GetMover(config.MoverConfig{Kind: "random_vertical", Name: "rv", MixedLayerDepth: 30}, env)
	require.NoError(t, err)
	assert.Equal(t, 15.0, rv.ArrowDepth())

	_, err = r.GetMover(config.MoverConfig{Kind: "random", Name: "r", Integrator: "rk4"}, env)
	assert.Error(t, err, "random movers take no integrator")
	_, err = r.GetMover(config.MoverConfig{Kind: "wind", Name: "w"}, env)
	assert.Error(t, err, "wind without a record")
	_, err = r.GetMover(config.MoverConfig{Kind: "random", Name: "r", Diffusion: -1}, env)
	assert.Error(t, err)
}

func TestExperimentRunPreset(t *testing.T) {
	cfg := config.GetPreset("current", "steady")
	require.NotNil(t, cfg)
	cfg.Duration = 3600
	cfg.Spill.NumLEs = 10

	e := New(cfg, nil)
	_, err := e.Run(context.Background())
	assert.Error(t, err, "run before setup")

	require.NoError(t, e.Setup())
	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, result.StepsTaken)
	assert.Contains(t, result.Metrics, "centroid_drift_m")
	// 0.3 and 0.1 m/s for an hour
	assert.InDelta(t, 1138.4, result.Metrics["centroid_drift_m"], 0.5)
}

func TestExperimentWind1Scenario(t *testing.T) {
	cfg := config.GetPreset("wind", "wind1")
	require.NotNil(t, cfg)

	e := New(cfg, nil)
	require.NoError(t, e.Setup())

	m := e.Simulator().Map()
	mv, ok := m.ByName("wind1")
	require.True(t, ok)
	assert.Equal(t, drift.Map(m), mv.Owner())

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	for _, le := range result.Final.LEs {
		assert.Equal(t, cfg.Origin(), le.P, "a bare mover leaves LEs in place")
	}
}

func TestExperimentEnsemble(t *testing.T) {
	cfg := config.GetPreset("diffusion", "surface")
	require.NotNil(t, cfg)
	cfg.Duration = 1800
	cfg.Spill.NumLEs = 5
	cfg.Workers = 2

	results, err := New(cfg, nil).RunEnsemble(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NotEqual(t, results[0].Final.Positions(), results[2].Final.Positions())

	_, err = New(cfg, nil).RunEnsemble(context.Background(), 0)
	assert.Error(t, err)
}

func TestBuildMapRejectsBadPolicy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FailurePolicy = "retry"
	_, err := New(cfg, nil).BuildMap(1)
	assert.Error(t, err)
}
