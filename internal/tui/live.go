package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/metrics"
	"github.com/san-kum/driftsim/internal/spill"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws the LE cloud in place on a plain terminal. It is a
// sim.Observer and drops frames above frameRate.
type LiveRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	name      string
	frameRate int
	lastFrame time.Time
	canvas    *canvas
}

func NewLiveRenderer(out io.Writer, name string, origin drift.WorldPoint3D, frameRate int) *LiveRenderer {
	if frameRate < 1 {
		frameRate = 1
	}
	return &LiveRenderer{
		out:       out,
		name:      name,
		frameRate: frameRate,
		canvas:    newCanvas(width, height, origin),
	}
}

func (r *LiveRenderer) OnStep(step int, t drift.Seconds, forecast, uncertain *spill.LESet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.canvas.draw(forecast, uncertain)
	r.render(step, t, forecast, uncertain)
}

func (r *LiveRenderer) render(step int, t drift.Seconds, forecast, uncertain *spill.LESet) {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  %s  step %d  t=%s\n", r.name, step+1, clock(t))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas.rows() {
		b.WriteString("  ")
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	fmt.Fprintf(&b, "  in water %d/%d  spread %.0f m  view ±%.1f km\n",
		forecast.Active(), forecast.Len(),
		metrics.SpreadOf(forecast.Positions()), r.canvas.extent/1000)
	if uncertain != nil {
		fmt.Fprintf(&b, "  uncertain spread %.0f m\n", metrics.SpreadOf(uncertain.Positions()))
	}

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }

// clock formats model seconds as [-]HH:MM:SS, with days when needed.
func clock(t drift.Seconds) string {
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	d := t / 86400
	h := t % 86400 / 3600
	m := t % 3600 / 60
	s := t % 60
	if d > 0 {
		return fmt.Sprintf("%s%dd%02d:%02d:%02d", sign, d, h, m, s)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}
