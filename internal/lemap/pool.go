package lemap

import (
	"sync"

	"github.com/san-kum/driftsim/internal/drift"
)

// positionPool recycles the per-step scratch buffers holding new positions.
type positionPool struct {
	pool sync.Pool
}

func (p *positionPool) get(n int) []drift.WorldPoint3D {
	if buf, ok := p.pool.Get().(*[]drift.WorldPoint3D); ok && cap(*buf) >= n {
		return (*buf)[:n]
	}
	return make([]drift.WorldPoint3D, n)
}

func (p *positionPool) put(buf []drift.WorldPoint3D) {
	clear(buf)
	p.pool.Put(&buf)
}
