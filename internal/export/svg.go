// Package export renders stored trajectories to formats outside the run store.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/driftsim/internal/drift"
)

var ErrNoFrames = errors.New("export: need at least two frames")

// SVGOptions controls the trajectory plot.
type SVGOptions struct {
	Width          int
	Height         int
	ForecastColor  string
	UncertainColor string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:          800,
		Height:         600,
		ForecastColor:  "#2e8b57",
		UncertainColor: "#d2452d",
	}
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(p drift.WorldPoint3D) {
	b.minX = min(b.minX, p.Long)
	b.maxX = max(b.maxX, p.Long)
	b.minY = min(b.minY, p.Lat)
	b.maxY = max(b.maxY, p.Lat)
}

// pad widens the box by 10% per side and keeps zero ranges drawable.
func (b *bounds) pad() {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1e-3
	}
	if ry == 0 {
		ry = 1e-3
	}
	b.minX -= rx * 0.1
	b.maxX += rx * 0.1
	b.minY -= ry * 0.1
	b.maxY += ry * 0.1
}

// TrajectoriesSVG draws one polyline per LE, forecast under uncertain, with
// longitude on x and latitude on y. Frames are indexed [frame][le].
func TrajectoriesSVG(w io.Writer, forecast, uncertain [][]drift.WorldPoint3D, opts SVGOptions) error {
	if len(forecast) < 2 || len(forecast[0]) == 0 {
		return ErrNoFrames
	}
	d := DefaultSVGOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = d.Width, d.Height
	}
	if opts.ForecastColor == "" {
		opts.ForecastColor = d.ForecastColor
	}
	if opts.UncertainColor == "" {
		opts.UncertainColor = d.UncertainColor
	}

	first := forecast[0][0]
	b := bounds{minX: first.Long, maxX: first.Long, minY: first.Lat, maxY: first.Lat}
	for _, frames := range [][][]drift.WorldPoint3D{forecast, uncertain} {
		for _, frame := range frames {
			for _, p := range frame {
				b.add(p)
			}
		}
	}
	b.pad()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#f4f8fb"/>
`, opts.Width, opts.Height, opts.Width, opts.Height)

	writePaths(&sb, forecast, b, opts, opts.ForecastColor)
	if len(uncertain) >= 2 {
		writePaths(&sb, uncertain, b, opts, opts.UncertainColor)
	}

	x, y := project(first, b, opts)
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\" fill=\"#000\"/>\n", x, y)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writePaths(sb *strings.Builder, frames [][]drift.WorldPoint3D, b bounds, opts SVGOptions, color string) {
	fmt.Fprintf(sb, "<g fill=\"none\" stroke=\"%s\" stroke-width=\"1\" stroke-opacity=\"0.6\">\n", color)
	for le := range frames[0] {
		sb.WriteString(`<path d="`)
		for i, frame := range frames {
			if le >= len(frame) {
				break
			}
			x, y := project(frame[le], b, opts)
			if i == 0 {
				fmt.Fprintf(sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</g>\n")
}

func project(p drift.WorldPoint3D, b bounds, opts SVGOptions) (float64, float64) {
	x := (p.Long - b.minX) / (b.maxX - b.minX) * float64(opts.Width)
	y := float64(opts.Height) - (p.Lat-b.minY)/(b.maxY-b.minY)*float64(opts.Height)
	return x, y
}
