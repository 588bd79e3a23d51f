package optim

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/driftsim/internal/config"
)

func shortConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = 11
	cfg.Duration = 3600
	cfg.Spill.NumLEs = 20
	return cfg
}

func TestParseParam(t *testing.T) {
	p, err := ParseParam("diffusion.diffusion=1e3, 1e5")
	require.NoError(t, err)
	assert.Equal(t, "diffusion", p.Mover)
	assert.Equal(t, "diffusion", p.Field)
	assert.Equal(t, []float64{1e3, 1e5}, p.Values)
	assert.Equal(t, "diffusion.diffusion", p.Key())

	for _, bad := range []string{"diffusion", "diffusion=1", "a.b=x", ".b=1"} {
		_, err := ParseParam(bad)
		assert.ErrorIs(t, err, ErrBadParam, bad)
	}
}

func TestGridSearchRanksBySpread(t *testing.T) {
	g := NewGridSearch(
		Param{Mover: "diffusion", Field: "diffusion", Values: []float64{1e6, 1e3}},
		Param{Mover: "current", Field: "u", Values: []float64{0, 0.5}},
	)
	assert.Equal(t, 4, g.Size())

	points, err := g.Search(context.Background(), shortConfig(), "spread_m")
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.Equal(t, 1e3, points[0].Params["diffusion.diffusion"])
	assert.Equal(t, 1e3, points[1].Params["diffusion.diffusion"])
	assert.Equal(t, 1e6, points[3].Params["diffusion.diffusion"])
	assert.Less(t, points[0].Value, points[3].Value)
}

func TestGridSearchLeavesBaseUntouched(t *testing.T) {
	base := shortConfig()
	g := NewGridSearch(Param{Mover: "current", Field: "v", Values: []float64{1}})
	_, err := g.Search(context.Background(), base, "centroid_drift_m")
	require.NoError(t, err)

	mc, _ := base.Mover("current")
	assert.Equal(t, 0.05, mc.V)
}

func TestGridSearchErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewGridSearch(Param{Mover: "nope", Field: "u", Values: []float64{1}}).Search(ctx, shortConfig(), "spread_m")
	assert.ErrorIs(t, err, ErrBadParam)

	_, err = NewGridSearch(Param{Mover: "current", Field: "colour", Values: []float64{1}}).Search(ctx, shortConfig(), "spread_m")
	assert.ErrorIs(t, err, ErrBadParam)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewGridSearch(Param{Mover: "current", Field: "u", Values: []float64{1}}).Search(canceled, shortConfig(), "spread_m")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGridSearchMissingMetricSortsLast(t *testing.T) {
	g := NewGridSearch(Param{Mover: "current", Field: "u", Values: []float64{0.1, 0.2}})
	points, err := g.Search(context.Background(), shortConfig(), "no_such_metric")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, math.IsNaN(points[0].Value))
}
