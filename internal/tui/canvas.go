package tui

import (
	"math"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/spill"
)

const (
	glyphOrigin    = '+'
	glyphForecast  = '•'
	glyphUncertain = '·'
	glyphBeached   = 'x'
)

// canvas is a character grid centred on the spill origin. Its half-width
// grows to keep every LE in view.
type canvas struct {
	w, h   int
	cells  [][]rune
	origin drift.WorldPoint3D
	extent float64
}

func newCanvas(w, h int, origin drift.WorldPoint3D) *canvas {
	c := &canvas{w: w, h: h, origin: origin, extent: 1000}
	c.cells = make([][]rune, h)
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.clear()
	return c
}

func (c *canvas) clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

// fit widens the extent, in metres, to cover the given sets.
func (c *canvas) fit(sets ...*spill.LESet) {
	for _, set := range sets {
		if set == nil {
			continue
		}
		for _, le := range set.LEs {
			dx, dy, _ := c.origin.Delta(le.P)
			r := math.Max(math.Abs(dx), math.Abs(dy)*2) * 1.1
			if r > c.extent {
				c.extent = r
			}
		}
	}
}

// cell maps a position to grid coordinates; north is up. Cells are about
// twice as tall as wide, so y uses half the extent.
func (c *canvas) cell(p drift.WorldPoint3D) (int, int) {
	dx, dy, _ := c.origin.Delta(p)
	x := int(math.Round(float64(c.w-1)/2 + dx/c.extent*float64(c.w-1)/2))
	y := int(math.Round(float64(c.h-1)/2 - dy/(c.extent/2)*float64(c.h-1)/2))
	return x, y
}

func (c *canvas) set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

func (c *canvas) plot(set *spill.LESet, glyph rune) {
	if set == nil {
		return
	}
	for _, le := range set.LEs {
		switch le.Status {
		case drift.InWater:
			x, y := c.cell(le.P)
			c.set(x, y, glyph)
		case drift.OnLand:
			x, y := c.cell(le.P)
			c.set(x, y, glyphBeached)
		}
	}
}

// draw renders the uncertain set under the forecast set.
func (c *canvas) draw(forecast, uncertain *spill.LESet) {
	c.clear()
	c.fit(forecast, uncertain)
	c.plot(uncertain, glyphUncertain)
	c.plot(forecast, glyphForecast)
	x, y := c.cell(c.origin)
	c.set(x, y, glyphOrigin)
}

func (c *canvas) rows() []string {
	out := make([]string, len(c.cells))
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}
