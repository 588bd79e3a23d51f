package lemap_test

import (
	"fmt"
	"sync"

	"github.com/san-kum/driftsim/internal/drift"
)

// journal collects hook calls from every recorder in a test.
type journal struct {
	mu     sync.Mutex
	events []string
	moves  map[string]int
}

func newJournal() *journal {
	return &journal{moves: make(map[string]int)}
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

func (j *journal) move(name string) {
	j.mu.Lock()
	j.moves[name]++
	j.events = append(j.events, "move "+name)
	j.mu.Unlock()
}

func (j *journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

func (j *journal) Moves(name string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.moves[name]
}

// recorder shifts every LE east by dx metres and logs its hooks.
type recorder struct {
	*drift.Base
	j          *journal
	dx         float64
	dz         float64
	threeD     bool
	prepareErr error
	refreshErr error
}

func newRecorder(j *journal, name string, dx float64) *recorder {
	return &recorder{Base: drift.NewBase(nil, name), j: j, dx: dx}
}

func (r *recorder) PrepareForStep(start, end, modelTime drift.Seconds, uncertain bool) error {
	r.j.add("prepare %s", r.Name())
	if r.prepareErr != nil {
		return r.prepareErr
	}
	return r.Base.PrepareForStep(start, end, modelTime, uncertain)
}

func (r *recorder) UpdateUncertainty() error {
	r.j.add("refresh %s", r.Name())
	if r.refreshErr != nil {
		return r.refreshErr
	}
	return r.Base.UpdateUncertainty()
}

func (r *recorder) Move(dt drift.Seconds, setIndex, leIndex int, le drift.LERec, leType drift.LEType) drift.WorldPoint3D {
	r.j.move(r.Name())
	return le.P.Offset(r.dx, 0, r.dz)
}

func (r *recorder) Is3D() bool { return r.threeD }

func (r *recorder) StepDone() {
	r.j.add("done %s", r.Name())
}
