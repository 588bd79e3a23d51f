// Package optim sweeps mover parameters over a grid and ranks the runs by a
// metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/experiment"
)

var ErrBadParam = errors.New("optim: bad parameter")

// Param names one numeric field of one configured mover, written
// "mover.field", and the values to try.
type Param struct {
	Mover  string
	Field  string
	Values []float64
}

func (p Param) Key() string { return p.Mover + "." + p.Field }

// ParseParam reads "mover.field=v1,v2,...".
func ParseParam(s string) (Param, error) {
	key, list, ok := strings.Cut(s, "=")
	if !ok {
		return Param{}, fmt.Errorf("%w: %q has no values", ErrBadParam, s)
	}
	mover, field, ok := strings.Cut(key, ".")
	if !ok || mover == "" || field == "" {
		return Param{}, fmt.Errorf("%w: %q is not mover.field", ErrBadParam, key)
	}
	p := Param{Mover: mover, Field: field}
	for _, v := range strings.Split(list, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Param{}, fmt.Errorf("%w: %v", ErrBadParam, err)
		}
		p.Values = append(p.Values, f)
	}
	return p, nil
}

// Point is one evaluated grid cell.
type Point struct {
	Params map[string]float64
	Value  float64
}

type GridSearch struct {
	params []Param
}

func NewGridSearch(params ...Param) *GridSearch {
	return &GridSearch{params: params}
}

// Size is the number of grid cells.
func (g *GridSearch) Size() int {
	if len(g.params) == 0 {
		return 0
	}
	n := 1
	for _, p := range g.params {
		n *= len(p.Values)
	}
	return n
}

// Search runs base once per grid cell and returns every point ordered by
// metric, smallest first. Cells whose metric is missing or NaN sort last.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) ([]Point, error) {
	for _, p := range g.params {
		if _, ok := base.Mover(p.Mover); !ok {
			return nil, fmt.Errorf("%w: no mover named %q", ErrBadParam, p.Mover)
		}
		if err := setField(&config.MoverConfig{}, p.Field, 0); err != nil {
			return nil, err
		}
	}

	var points []Point
	err := g.searchRecursive(ctx, 0, map[string]float64{}, base, metricName, &points)
	if err != nil {
		return points, err
	}

	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i].Value, points[j].Value
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a < b
	})
	return points, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.params) {
		cfg, err := apply(base, g.params, current)
		if err != nil {
			return err
		}
		exp := experiment.New(cfg, nil)
		if err := exp.Setup(); err != nil {
			return err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			val = math.NaN()
		}
		*points = append(*points, Point{Params: maps.Clone(current), Value: val})
		return nil
	}

	p := g.params[depth]
	for _, val := range p.Values {
		next := maps.Clone(current)
		next[p.Key()] = val
		if err := g.searchRecursive(ctx, depth+1, next, base, metricName, points); err != nil {
			return err
		}
	}
	return nil
}

func apply(base *config.Config, params []Param, values map[string]float64) (*config.Config, error) {
	cfg := base.Clone()
	for _, p := range params {
		for i := range cfg.Movers {
			if cfg.Movers[i].Name != p.Mover {
				continue
			}
			if err := setField(&cfg.Movers[i], p.Field, values[p.Key()]); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

func setField(mc *config.MoverConfig, field string, v float64) error {
	switch field {
	case "u":
		mc.U = v
	case "v":
		mc.V = v
	case "diffusion":
		mc.Diffusion = v
	case "vertical_diffusion":
		mc.VerticalDiffusion = v
	case "mixed_layer_depth":
		mc.MixedLayerDepth = v
	case "uncertainty_factor":
		if mc.Uncertainty == nil {
			mc.Uncertainty = &config.UncertaintyConfig{}
		}
		mc.Uncertainty.Factor = v
	default:
		return fmt.Errorf("%w: unknown field %q", ErrBadParam, field)
	}
	return nil
}
