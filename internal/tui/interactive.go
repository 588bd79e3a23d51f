package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/driftsim/internal/config"
	"github.com/san-kum/driftsim/internal/drift"
	"github.com/san-kum/driftsim/internal/experiment"
	"github.com/san-kum/driftsim/internal/metrics"
	"github.com/san-kum/driftsim/internal/sim"
	"github.com/san-kum/driftsim/internal/spill"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type state int

const (
	stateMenu state = iota
	stateSim
)

type presetRef struct {
	group, name string
}

func (p presetRef) String() string { return p.group + "/" + p.name }

type frameMsg struct {
	step      int
	t         drift.Seconds
	forecast  *spill.LESet
	uncertain *spill.LESet
}

type doneMsg struct {
	result *sim.Result
	err    error
}

type tickMsg time.Time

type model struct {
	state    state
	cursor   int
	presets  []presetRef
	selected presetRef
	cfg      *config.Config

	frames   chan frameMsg
	done     chan doneMsg
	cancel   context.CancelFunc
	last     *frameMsg
	history  []float64
	paused   bool
	speed    int
	finished bool
	err      error

	width  int
	height int
}

func NewInteractiveApp() *model {
	var presets []presetRef
	for _, g := range config.ListGroups() {
		for _, n := range config.ListPresets(g) {
			presets = append(presets, presetRef{group: g, name: n})
		}
	}
	return &model{
		state:   stateMenu,
		presets: presets,
		speed:   1,
		history: make([]float64, 0, 60),
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd { return nil }

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.state != stateSim || m.finished {
			return m, nil
		}
		if !m.paused {
			m.drain()
		}
		return m, tick()
	}
	return m, nil
}

// drain takes up to speed frames from the running simulation and checks
// whether it has finished.
func (m *model) drain() {
	for i := 0; i < m.speed; i++ {
		select {
		case f := <-m.frames:
			m.last = &f
			m.history = append(m.history, metrics.SpreadOf(f.forecast.Positions()))
			if len(m.history) > 60 {
				m.history = m.history[1:]
			}
			continue
		default:
		}
		break
	}
	select {
	case d := <-m.done:
		m.finished = true
		m.err = d.err
	default:
	}
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stop()
		return m, tea.Quit
	}
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateSim:
		return m.simKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.presets) == 0 {
			return m, nil
		}
		m.selected = m.presets[m.cursor]
		if err := m.start(); err != nil {
			m.err = err
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.stop()
		return m, tea.Quit
	case "esc", "m":
		m.stop()
		m.state = stateMenu
		return m, nil
	case " ", "p":
		m.paused = !m.paused
	case "+", "=":
		if m.speed < 32 {
			m.speed *= 2
		}
	case "-", "_":
		if m.speed > 1 {
			m.speed /= 2
		}
	case "r":
		m.stop()
		if err := m.start(); err != nil {
			m.err = err
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

// start launches the selected preset in the background. The observer blocks
// until the UI takes each frame, so pausing the UI pauses the run.
func (m *model) start() error {
	cfg := config.GetPreset(m.selected.group, m.selected.name)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s", m.selected)
	}
	e := experiment.New(cfg, nil)
	if err := e.Setup(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan frameMsg)
	done := make(chan doneMsg, 1)

	s := e.Simulator()
	s.AddObserver(sim.ObserverFunc(func(step int, t drift.Seconds, forecast, uncertain *spill.LESet) {
		f := frameMsg{step: step, t: t, forecast: forecast.Clone(forecast.Name, false)}
		if uncertain != nil {
			f.uncertain = uncertain.Clone(uncertain.Name, true)
		}
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	}))
	go func() {
		res, err := s.Run(ctx, e.SimConfig())
		done <- doneMsg{result: res, err: err}
	}()

	m.cfg = cfg
	m.frames = frames
	m.done = done
	m.cancel = cancel
	m.state = stateSim
	m.last = nil
	m.history = m.history[:0]
	m.paused = false
	m.finished = false
	m.err = nil
	return nil
}

func (m *model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateSim:
		return m.viewSim()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("          " + cyan.Render("d r i f t s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, p := range m.presets {
		desc := describePreset(p)
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-24s", p)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-24s", p)) + dimmer.Render(desc) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n      " + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter start   q quit") + "\n")

	return b.String()
}

func describePreset(p presetRef) string {
	cfg := config.GetPreset(p.group, p.name)
	if cfg == nil {
		return ""
	}
	kinds := make([]string, len(cfg.Movers))
	for i, mc := range cfg.Movers {
		kinds[i] = mc.Kind
	}
	desc := strings.Join(kinds, "+")
	if cfg.Uncertain {
		desc += " (uncertain)"
	}
	return desc
}

func (m model) viewSim() string {
	cw := m.width - 6
	ch := m.height - 10
	if cw < 40 {
		cw = 40
	}
	if ch < 10 {
		ch = 10
	}

	var b strings.Builder

	statusIcon := green.Render("●")
	statusText := green.Render("running")
	switch {
	case m.err != nil:
		statusIcon = red.Render("✕")
		statusText = red.Render(m.err.Error())
	case m.finished:
		statusIcon = cyan.Render("■")
		statusText = cyan.Render("done")
	case m.paused:
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	fmt.Fprintf(&b, "\n   %s %s  %s  %s\n", statusIcon, cyan.Render(m.selected.String()), statusText,
		dim.Render(fmt.Sprintf("x%d", m.speed)))

	var t drift.Seconds
	if m.last != nil {
		t = m.last.t
	}
	progress := 0.0
	if m.cfg != nil && m.cfg.Duration > 0 {
		progress = float64(t-m.cfg.StartTime) / float64(m.cfg.Duration)
	}
	progress = min(max(progress, 0), 1)
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	fmt.Fprintf(&b, "   %s %s\n\n", bar, dim.Render(clock(t)))

	if m.last != nil && m.cfg != nil {
		c := newCanvas(cw, ch, m.cfg.Origin())
		c.draw(m.last.forecast, m.last.uncertain)
		for _, row := range c.rows() {
			b.WriteString("   " + colorRow(row) + "\n")
		}
		fmt.Fprintf(&b, "\n   %s %d/%d  %s ±%.1f km\n",
			dim.Render("in water"), m.last.forecast.Active(), m.last.forecast.Len(),
			dim.Render("view"), c.extent/1000)
	} else {
		b.WriteString(dim.Render("   waiting for first step...") + "\n")
	}

	if len(m.history) > 1 {
		fmt.Fprintf(&b, "   %s %s %s\n", dim.Render("spread"), cyan.Render(sparkline(m.history, 24)),
			white.Render(fmt.Sprintf("%.0f m", m.history[len(m.history)-1])))
	}

	b.WriteString("\n" + dim.Render("   space pause  ±speed  r restart  m menu  q quit") + "\n")

	return b.String()
}

func colorRow(row string) string {
	var b strings.Builder
	for _, r := range row {
		switch r {
		case glyphForecast:
			b.WriteString(cyan.Render(string(r)))
		case glyphUncertain:
			b.WriteString(magenta.Render(string(r)))
		case glyphBeached:
			b.WriteString(yellow.Render(string(r)))
		case glyphOrigin:
			b.WriteString(white.Render(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		sb.WriteRune(chars[min(max(idx, 0), 7)])
	}
	return sb.String()
}

func RunInteractive() error {
	p := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
